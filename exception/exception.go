package exception

import (
	"os"
	"runtime/debug"

	"github.com/mtlnet/mtl/logx"
	"github.com/mtlnet/mtl/monitoring"
)

// SafeGo runs fn on a new goroutine and turns a panic into a logged
// error and a metric bump instead of a process crash.
func SafeGo(name string, fn func()) {
	go guarded(name, fn, false)
}

// SafeGoWithPanic runs fn on a new goroutine; a panic is logged and
// then takes the process down. For goroutines the node cannot run
// without.
func SafeGoWithPanic(name string, fn func()) {
	go guarded(name, fn, true)
}

func guarded(name string, fn func(), fatal bool) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.IncreasePanicCount()
			logx.Error("PANIC", name, r, string(debug.Stack()))
			if fatal {
				os.Exit(1)
			}
		}
	}()
	fn()
}
