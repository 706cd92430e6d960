// TinyGo guest for the reduction kernel.
//
// Uses a pre-allocated static buffer to avoid per-call allocation.
// The host copies data into the buffer at the offset it reports, then
// calls sum with the element count.
//
// Build: tinygo build -o wasm/tinygo/sum.wasm -target=wasip1 -buildmode=c-shared -opt=2 ./wasm/tinygo

package main

import (
	"unsafe"

	"github.com/paulstuart/sumarray"
)

// Pre-allocated buffer capacity (100K f64 elements = 800KB)
const capacity = 100_000

// Static buffer - allocated once, stable address
var buffer [capacity]float64

// main is required but empty for WASM library
func main() {}

//export sum
func sum(n uint32) float64 {
	if n > capacity {
		panic("sum: n exceeds capacity")
	}
	return sumarray.Sum(buffer[:n])
}

//export buffer_offset
func bufferOffset() uint32 {
	return uint32(uintptr(unsafe.Pointer(&buffer[0])))
}

//export capacity
func getCapacity() uint32 {
	return capacity
}
