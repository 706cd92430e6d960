// Command libsumarray builds the kernel as a C shared library for host
// environments such as R.
//
// Build:
//
//	go build -buildmode=c-shared -o libsumarray.so ./cmd/libsumarray
//
// From C, or any FFI that speaks the C ABI:
//
//	double sum_array(const double *x, ptrdiff_t n);
//
// From R through the .C interface, where every argument is a pointer:
//
//	dyn.load("libsumarray.so")
//	.C("sum_array_r", as.double(x), as.integer(length(x)), result = double(1))$result
package main

/*
#include <stddef.h>
*/
import "C"

import (
	"unsafe"

	"github.com/paulstuart/sumarray"
)

// main is required by -buildmode=c-shared but never runs
func main() {}

//export sum_array
func sum_array(x *C.double, n C.ptrdiff_t) C.double {
	return C.double(sumPtr((*float64)(unsafe.Pointer(x)), int(n)))
}

//export sum_array_r
func sum_array_r(x *C.double, n *C.int, result *C.double) {
	if result == nil {
		return
	}
	count := 0
	if n != nil {
		count = int(*n)
	}
	*result = C.double(sumPtr((*float64)(unsafe.Pointer(x)), count))
}

// sumPtr sums n doubles starting at p, viewing the host's memory in place.
// The view does not outlive the call.
func sumPtr(p *float64, n int) float64 {
	if p == nil || n <= 0 {
		return 0
	}
	return sumarray.Sum(unsafe.Slice(p, n))
}
