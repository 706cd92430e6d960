// Package guest embeds the WebAssembly text source of the reduction kernel.
//
// The module implements the guest ABI the hosts in wasm/host expect, without
// needing a wasm toolchain at build time. Compile it with
// wasmtime.Wat2Wasm, or use any prebuilt guest such as the TinyGo one.
package guest

import _ "embed"

// WAT is the text-format module source.
//
//go:embed sum.wat
var WAT string

// Capacity is the number of f64 values the WAT guest can stage.
const Capacity = 16000
