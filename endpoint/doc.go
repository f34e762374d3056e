// Package endpoint runs a WASM guest module as an HTTP handler.
//
// An [Executor] compiles the guest once and implements http.Handler: each
// request instantiates the guest anonymously with its own per-invocation
// state, feeds it the request body, and relays the response the guest
// announces through the wasmgate host functions.
//
//	exec, err := endpoint.New(ctx, guestWasm,
//	    endpoint.WithTimeout(10*time.Second),
//	    endpoint.WithMemoryLimit(1024))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	http.ListenAndServe(":8080", exec)
//
// The request body is handed to the guest as the poll body source, so a
// guest that never reads it never buffers it. The response body streams
// through a pipe: the guest's bounded outbound buffer blocks in poll, not
// on the host's executor, when the client reads slowly.
package endpoint
