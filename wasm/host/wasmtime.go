package host

import (
	"fmt"
	"sync"

	"github.com/bytecodealliance/wasmtime-go/v39"
	"go.uber.org/zap"
)

// wasiConfig creates a minimal WASI configuration for modules that need it
func wasiConfig() *wasmtime.WasiConfig {
	return wasmtime.NewWasiConfig()
}

// Wasmtime hosts a guest on the wasmtime engine (via cgo).
// After initialization, calls involve only a memory copy and one function
// invocation.
type Wasmtime struct {
	engine   *wasmtime.Engine
	store    *wasmtime.Store
	module   *wasmtime.Module
	instance *wasmtime.Instance
	memory   *wasmtime.Memory

	fnSum *wasmtime.Func

	// Pre-computed staging buffer location in guest linear memory
	bufferOffset uint32
	capacity     uint32

	// a store is not safe for concurrent use
	mu sync.Mutex
}

var _ Summer = (*Wasmtime)(nil)

// NewWasmtime compiles and instantiates a guest from its wasm binary.
func NewWasmtime(wasmBytes []byte, opts ...Option) (*Wasmtime, error) {
	engine := wasmtime.NewEngine()
	store := wasmtime.NewStore(engine)

	module, err := wasmtime.NewModule(engine, wasmBytes)
	if err != nil {
		store.Close()
		engine.Close()
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	w, err := newWasmtimeFromModule(engine, store, module, buildOptions(opts))
	if err != nil {
		module.Close()
		store.Close()
		engine.Close()
		return nil, err
	}
	return w, nil
}

func newWasmtimeFromModule(engine *wasmtime.Engine, store *wasmtime.Store, module *wasmtime.Module, o options) (*Wasmtime, error) {
	// Check if module needs WASI imports
	needsWasi := false
	for _, imp := range module.Imports() {
		if imp.Module() == "wasi_snapshot_preview1" {
			needsWasi = true
			break
		}
	}

	var instance *wasmtime.Instance
	var err error

	if needsWasi {
		linker := wasmtime.NewLinker(engine)
		if err := linker.DefineWasi(); err != nil {
			return nil, fmt.Errorf("failed to define WASI: %w", err)
		}
		store.SetWasi(wasiConfig())

		instance, err = linker.Instantiate(store, module)
		if err != nil {
			return nil, fmt.Errorf("failed to instantiate module with WASI: %w", err)
		}
	} else {
		instance, err = wasmtime.NewInstance(store, module, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to instantiate module: %w", err)
		}
	}

	// Reactors (e.g. TinyGo c-shared) need their runtime set up first
	if initialize := instance.GetFunc(store, "_initialize"); initialize != nil {
		if _, err := initialize.Call(store); err != nil {
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	memExtern := instance.GetExport(store, ExportMemory)
	if memExtern == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingExport, ExportMemory)
	}
	memory := memExtern.Memory()
	if memory == nil {
		return nil, fmt.Errorf("'%s' export is not a memory", ExportMemory)
	}

	w := &Wasmtime{
		engine:   engine,
		store:    store,
		module:   module,
		instance: instance,
		memory:   memory,
	}

	w.fnSum = instance.GetFunc(store, ExportSum)
	if w.fnSum == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingExport, ExportSum)
	}

	if w.bufferOffset, err = w.callU32(ExportBufferOffset); err != nil {
		return nil, err
	}
	if w.capacity, err = w.callU32(ExportCapacity); err != nil {
		return nil, err
	}

	o.logger.Debug("wasm guest loaded",
		zap.String("runtime", string(RuntimeWasmtime)),
		zap.Bool("wasi", needsWasi),
		zap.Uint32("buffer_offset", w.bufferOffset),
		zap.Uint32("capacity", w.capacity))

	return w, nil
}

// callU32 calls a nullary guest function returning i32.
func (w *Wasmtime) callU32(name string) (uint32, error) {
	fn := w.instance.GetFunc(w.store, name)
	if fn == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingExport, name)
	}
	result, err := fn.Call(w.store)
	if err != nil {
		return 0, fmt.Errorf("%s failed: %w", name, err)
	}
	v, ok := result.(int32)
	if !ok {
		return 0, fmt.Errorf("%s returned %T, want i32", name, result)
	}
	return uint32(v), nil
}

// Close releases wasmtime resources.
func (w *Wasmtime) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.module.Close()
	w.store.Close()
	w.engine.Close()
	return nil
}

// Capacity returns the maximum number of elements the guest can sum.
func (w *Wasmtime) Capacity() int {
	return int(w.capacity)
}

// Sum returns the sum of all elements, computed by the guest.
func (w *Wasmtime) Sum(data []float64) (float64, error) {
	n := len(data)
	if n == 0 {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	mem := w.memory.UnsafeData(w.store)
	if err := checkFit(n, w.capacity, w.bufferOffset, len(mem)); err != nil {
		return 0, err
	}
	copy(mem[w.bufferOffset:], f64Bytes(data))

	result, err := w.fnSum.Call(w.store, int32(n))
	if err != nil {
		return 0, fmt.Errorf("%s failed: %w", ExportSum, err)
	}
	sum, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("%s returned %T, want f64", ExportSum, result)
	}
	return sum, nil
}
