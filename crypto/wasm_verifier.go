package crypto

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	wazeroapi "github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/mtlnet/mtl/logx"
)

// WasmVerifier delegates signature checks to an operator-supplied wasm
// module, so a chain can run a signature scheme the node binary does not
// ship. The module must export linear memory plus two functions:
//
//	alloc(size u32) -> ptr u32
//	verify(digestPtr u32, sigPtr u32, sigLen u32, addrPtr u32, addrLen u32) -> u32
//
// verify returns 1 for a valid signature, anything else for invalid.
type WasmVerifier struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	mod     wazeroapi.Module
	alloc   wazeroapi.Function
	verify  wazeroapi.Function
}

func NewWasmVerifier(modulePath string) (*WasmVerifier, error) {
	ctx := context.Background()
	code, err := os.ReadFile(modulePath)
	if err != nil {
		return nil, fmt.Errorf("read wasm verifier module: %w", err)
	}

	runtime := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	mod, err := runtime.InstantiateWithConfig(ctx, code, wazero.NewModuleConfig().WithName("verifier"))
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("instantiate wasm verifier: %w", err)
	}

	alloc := mod.ExportedFunction("alloc")
	verify := mod.ExportedFunction("verify")
	if alloc == nil || verify == nil || mod.Memory() == nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("wasm verifier must export memory, alloc and verify")
	}

	logx.Info("CRYPTO", fmt.Sprintf("Loaded wasm verifier module from %s", modulePath))
	return &WasmVerifier{runtime: runtime, mod: mod, alloc: alloc, verify: verify}, nil
}

func (v *WasmVerifier) Scheme() string { return SigSchemeWasm }

// Verify copies the digest, signature and address into the module's
// memory and calls its verify export. Module calls are serialized; wasm
// instances are not safe for concurrent use.
func (v *WasmVerifier) Verify(digest Digest, signature []byte, address string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	ctx := context.Background()
	digestPtr, err := v.writeGuest(ctx, digest[:])
	if err != nil {
		logx.Error("CRYPTO", "wasm verifier digest write: ", err)
		return false
	}
	sigPtr, err := v.writeGuest(ctx, signature)
	if err != nil {
		logx.Error("CRYPTO", "wasm verifier signature write: ", err)
		return false
	}
	addrPtr, err := v.writeGuest(ctx, []byte(address))
	if err != nil {
		logx.Error("CRYPTO", "wasm verifier address write: ", err)
		return false
	}

	results, err := v.verify.Call(ctx, digestPtr, sigPtr, uint64(len(signature)), addrPtr, uint64(len(address)))
	if err != nil || len(results) == 0 {
		logx.Error("CRYPTO", "wasm verifier call: ", err)
		return false
	}
	return results[0] == 1
}

func (v *WasmVerifier) writeGuest(ctx context.Context, data []byte) (uint64, error) {
	results, err := v.alloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("alloc %d bytes: %w", len(data), err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("alloc returned no pointer")
	}
	ptr := results[0]
	if !v.mod.Memory().Write(uint32(ptr), data) {
		return 0, fmt.Errorf("write %d bytes at %d out of range", len(data), ptr)
	}
	return ptr, nil
}

func (v *WasmVerifier) Close() error {
	return v.runtime.Close(context.Background())
}
