package main

import (
	"os"
	"runtime/debug"

	"github.com/mtlnet/mtl/cmd"
	"github.com/mtlnet/mtl/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("node crashed: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
