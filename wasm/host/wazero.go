package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// Wazero hosts a guest on the wazero runtime, which is pure Go and works
// without cgo.
type Wazero struct {
	runtime wazero.Runtime
	module  api.Module
	ctx     context.Context

	fnSum api.Function

	bufferOffset uint32
	capacity     uint32

	mu sync.Mutex
}

var _ Summer = (*Wazero)(nil)

// NewWazero compiles and instantiates a guest from its wasm binary.
func NewWazero(wasmBytes []byte, opts ...Option) (*Wazero, error) {
	o := buildOptions(opts)
	ctx := context.Background()

	runtime := wazero.NewRuntime(ctx)

	// WASI for guests built against it (TinyGo); unused imports are harmless
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	// Run _initialize for reactors; never _start, which may exit the module.
	config := wazero.NewModuleConfig().WithStartFunctions("_initialize")
	module, err := runtime.InstantiateModule(ctx, compiled, config)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	w := &Wazero{
		runtime: runtime,
		module:  module,
		ctx:     ctx,
	}

	if err := w.resolve(); err != nil {
		w.Close()
		return nil, err
	}

	o.logger.Debug("wasm guest loaded",
		zap.String("runtime", string(RuntimeWazero)),
		zap.Uint32("buffer_offset", w.bufferOffset),
		zap.Uint32("capacity", w.capacity))

	return w, nil
}

func (w *Wazero) resolve() error {
	if w.module.Memory() == nil {
		return fmt.Errorf("%w: %s", ErrMissingExport, ExportMemory)
	}

	w.fnSum = w.module.ExportedFunction(ExportSum)
	if w.fnSum == nil {
		return fmt.Errorf("%w: %s", ErrMissingExport, ExportSum)
	}

	var err error
	if w.bufferOffset, err = w.callU32(ExportBufferOffset); err != nil {
		return err
	}
	if w.capacity, err = w.callU32(ExportCapacity); err != nil {
		return err
	}
	return nil
}

func (w *Wazero) callU32(name string) (uint32, error) {
	fn := w.module.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingExport, name)
	}
	results, err := fn.Call(w.ctx)
	if err != nil {
		return 0, fmt.Errorf("%s failed: %w", name, err)
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("%s returned %d values, want 1", name, len(results))
	}
	return api.DecodeU32(results[0]), nil
}

// Close releases wazero resources.
func (w *Wazero) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.module != nil {
		w.module.Close(w.ctx)
	}
	if w.runtime != nil {
		return w.runtime.Close(w.ctx)
	}
	return nil
}

// Capacity returns the maximum number of elements the guest can sum.
func (w *Wazero) Capacity() int {
	return int(w.capacity)
}

// Sum returns the sum of all elements, computed by the guest.
func (w *Wazero) Sum(data []float64) (float64, error) {
	n := len(data)
	if n == 0 {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	mem := w.module.Memory()
	if err := checkFit(n, w.capacity, w.bufferOffset, int(mem.Size())); err != nil {
		return 0, err
	}
	if !mem.Write(w.bufferOffset, f64Bytes(data)) {
		return 0, fmt.Errorf("failed to write %d elements to guest memory", n)
	}

	results, err := w.fnSum.Call(w.ctx, api.EncodeU32(uint32(n)))
	if err != nil {
		return 0, fmt.Errorf("%s failed: %w", ExportSum, err)
	}
	if len(results) != 1 {
		return 0, fmt.Errorf("%s returned %d values, want 1", ExportSum, len(results))
	}
	return api.DecodeF64(results[0]), nil
}
