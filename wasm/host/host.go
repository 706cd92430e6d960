// Package host runs the reduction kernel inside a WebAssembly guest.
//
// A guest exports linear memory plus three functions:
//
//	buffer_offset() i32  byte offset of a static f64 staging buffer
//	capacity() i32       staging buffer size in elements
//	sum(n i32) f64       sum of the first n staged elements
//
// The host resolves the exports and offsets once at load time. Per call it
// copies the input into guest memory and invokes sum; nothing is allocated
// inside the guest on the hot path.
package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/bytecodealliance/wasmtime-go/v39"
	"go.uber.org/zap"

	"github.com/paulstuart/sumarray/internal/logging"
)

// Guest export names.
const (
	ExportMemory       = "memory"
	ExportSum          = "sum"
	ExportBufferOffset = "buffer_offset"
	ExportCapacity     = "capacity"
)

var (
	// ErrCapacity is returned when the input does not fit the guest buffer.
	ErrCapacity = errors.New("input exceeds guest capacity")

	// ErrMissingExport is returned when a module lacks part of the guest ABI.
	ErrMissingExport = errors.New("missing guest export")
)

// Summer sums float64 slices in a loaded guest.
type Summer interface {
	Sum(data []float64) (float64, error)
	Capacity() int
	Close() error
}

// Runtime identifies which WebAssembly engine hosts the guest.
type Runtime string

const (
	RuntimeWasmtime Runtime = "wasmtime"
	RuntimeWazero   Runtime = "wazero"
)

// Option configures a host.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger logs module loading details to l. A nil l discards them.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrNop(o.logger)
	return o
}

// New loads a compiled guest into the chosen runtime.
func New(rt Runtime, wasmBytes []byte, opts ...Option) (Summer, error) {
	switch rt {
	case RuntimeWasmtime:
		return NewWasmtime(wasmBytes, opts...)
	case RuntimeWazero, "":
		return NewWazero(wasmBytes, opts...)
	default:
		return nil, fmt.Errorf("unknown wasm runtime %q", rt)
	}
}

// Open loads a guest from path. Files ending in .wat are compiled from text
// first.
func Open(rt Runtime, path string, opts ...Option) (Summer, error) {
	wasmBytes, err := ReadModule(path)
	if err != nil {
		return nil, err
	}
	return New(rt, wasmBytes, opts...)
}

// ReadModule reads a guest binary, compiling it first if it is WAT text.
func ReadModule(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".wat") {
		return CompileWAT(string(data))
	}
	return data, nil
}

// CompileWAT converts WebAssembly text to binary.
func CompileWAT(src string) ([]byte, error) {
	wasmBytes, err := wasmtime.Wat2Wasm(src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile wat: %w", err)
	}
	return wasmBytes, nil
}

// checkFit validates that n elements fit both the guest's declared capacity
// and its memory.
func checkFit(n int, capacity, offset uint32, memSize int) error {
	if n > int(capacity) {
		return fmt.Errorf("%w: %d > %d", ErrCapacity, n, capacity)
	}
	if int(offset)+n*8 > memSize {
		return fmt.Errorf("%w: buffer at %d for %d elements overruns %d byte memory", ErrCapacity, offset, n, memSize)
	}
	return nil
}

// f64Bytes views data as raw bytes. float64 has the same little-endian
// layout on the host and in wasm linear memory on all supported hosts.
func f64Bytes(data []float64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*8)
}
