package hostfunc

import "errors"

// Guest contract violations. These abort the invocation: inside a host
// function they are raised as panics, which wazero converts into a failed
// guest call. They indicate a broken guest, not a recoverable condition.
var (
	ErrMemoryNotFound     = errors.New("guest module exports no memory")
	ErrMemoryAccess       = errors.New("guest memory access out of range")
	ErrInvalidStatusCode  = errors.New("invalid response status code")
	ErrInvalidHeaderBlock = errors.New("invalid header block")
	ErrNoSubscriptions    = errors.New("poll called with no subscriptions")
)
