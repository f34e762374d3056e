// Package abi defines the wire vocabulary shared between the wasmgate host
// and its guest modules: status codes, subscription and event kinds, the
// fixed-size little-endian record layouts exchanged through guest memory,
// and the textual header block codec.
//
// # Records
//
// A subscription is 24 bytes: kind (u32), reserved (u32), userdata (u64),
// and a kind-specific payload (u64, milliseconds for timeouts). An event is
// 16 bytes: kind (u32), status (u32), userdata (u64). Both are little-endian
// and packed back to back when arrays are exchanged.
//
// # Status codes
//
// Host functions report a small closed set of statuses. [StatusOK] means the
// call made progress. [StatusWouldBlock] is not an error: it means no
// progress is possible without suspending, and the guest should wait via
// poll before retrying. [StatusUnknown] summarizes an underlying I/O failure
// whose cause is deliberately not surfaced across the trust boundary.
package abi
