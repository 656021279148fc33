package adapter

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// wasmExtractor hosts a WASM module implementing a signature-preserving
// source extractor for the "compress" adapter. The module's ABI (grounded
// on the common TinyGo/wazero convention used across the pack's wasm-hosting
// examples): it exports `alloc(size) -> ptr`, `extract(ptr, len) ->
// packed`, where packed is a big-endian (outPtr<<32 | outLen) pair read back
// out of the module's linear memory.
type wasmExtractor struct {
	runtime  wazero.Runtime
	module   api.Module
	alloc    api.Function
	extract  api.Function
	closeOne sync.Once
}

func newWasmExtractor(ctx context.Context, wasmPath string) (*wasmExtractor, error) {
	code, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, fmt.Errorf("adapter: reading wasm module %s: %w", wasmPath, err)
	}

	rt := wazero.NewRuntime(ctx)
	mod, err := rt.Instantiate(ctx, code)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("adapter: instantiating wasm module %s: %w", wasmPath, err)
	}

	alloc := mod.ExportedFunction("alloc")
	extract := mod.ExportedFunction("extract")
	if alloc == nil || extract == nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("adapter: wasm module %s missing required exports alloc/extract", wasmPath)
	}

	return &wasmExtractor{runtime: rt, module: mod, alloc: alloc, extract: extract}, nil
}

// Extract runs the module's signature extractor over source and returns the
// extracted (signature-only) text.
func (w *wasmExtractor) Extract(ctx context.Context, source []byte) ([]byte, error) {
	mem := w.module.Memory()

	allocated, err := w.alloc.Call(ctx, uint64(len(source)))
	if err != nil {
		return nil, fmt.Errorf("adapter: wasm alloc: %w", err)
	}
	ptr := uint32(allocated[0])
	if !mem.Write(ptr, source) {
		return nil, fmt.Errorf("adapter: wasm memory write out of range")
	}

	packed, err := w.extract.Call(ctx, uint64(ptr), uint64(len(source)))
	if err != nil {
		return nil, fmt.Errorf("adapter: wasm extract: %w", err)
	}

	outPtr := uint32(packed[0] >> 32)
	outLen := uint32(packed[0])
	out, ok := mem.Read(outPtr, outLen)
	if !ok {
		return nil, fmt.Errorf("adapter: wasm memory read out of range")
	}

	result := make([]byte, len(out))
	copy(result, out)
	return result, nil
}

func (w *wasmExtractor) Close(ctx context.Context) {
	w.closeOne.Do(func() {
		_ = w.runtime.Close(ctx)
	})
}
