// Package hostfunc implements the host side of the wasmgate ABI: the five
// functions a sandboxed guest uses to act as an HTTP request handler without
// touching the network or filesystem itself.
//
// # Overview
//
// A guest exchanges data with the host exclusively through bounded buffers
// in per-invocation [EndpointState], reached via bounds-checked views into
// the guest's linear memory. Four functions are synchronous and never
// block: read_request, read_request_body, send_response and
// write_response_body either move bytes immediately or report
// [abi.StatusWouldBlock]. The fifth, poll, is the only suspension point: it
// waits on up to three event sources (incoming body data, outgoing body
// capacity, timers) and reports whichever becomes ready first.
//
// # Wiring
//
// Register the host module once per runtime, then carry the invocation
// state in the context of each guest call:
//
//	closer, _ := hostfunc.Instantiate(ctx, runtime)
//	state := hostfunc.NewEndpointState(hostfunc.Config{
//	    RequestText: "GET / HTTP/1.1\r\n\r\n",
//	    Source:      r.Body,
//	    Sink:        pw,
//	    Notifier:    announcements,
//	})
//	defer state.Close()
//	runtime.InstantiateModule(hostfunc.WithState(ctx, state), guest, cfg)
//
// # Trust boundary
//
// Guest contract violations (out-of-range memory access, missing memory
// export, bad status code, poll without subscriptions) trap the invocation.
// Transient conditions stay inside the non-blocking vocabulary as
// would-block statuses. Failures of the underlying body source or sink are
// summarized as [abi.StatusUnknown]; their cause is never surfaced to the
// guest.
//
// See the endpoint package for the http.Handler that drives one invocation
// per request.
package hostfunc
