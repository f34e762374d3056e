// Package wasmgate runs untrusted WebAssembly modules as HTTP request
// handlers behind a narrow, syscall-like ABI.
//
// # Overview
//
// A guest module cannot touch the network or filesystem. It reads one
// request and produces one response through five host functions operating
// on its own linear memory, with bounded buffers in both body directions
// and a single poll primitive for waiting on body data, body capacity, or
// timers.
//
// # Basic Usage
//
//	guest, _ := os.ReadFile("handler.wasm")
//	exec, _ := endpoint.New(ctx, guest)
//	defer exec.Close()
//
//	http.ListenAndServe(":8080", exec)
//
// # Packages
//
// See [github.com/wasmgate/wasmgate/endpoint] for the http.Handler,
// [github.com/wasmgate/wasmgate/hostfunc] for the host side of the ABI, and
// [github.com/wasmgate/wasmgate/abi] for the shared wire vocabulary.
package wasmgate
