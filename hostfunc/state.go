package hostfunc

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const (
	// BodyChunkSize is how many inbound body bytes one poll round may pull
	// from the source.
	BodyChunkSize = 4096

	// OutboundBufferCap bounds the bytes buffered between write_response_body
	// and the sink. A full buffer makes write_response_body report
	// would-block, which is the backpressure that protects the host from a
	// slow response consumer.
	OutboundBufferCap = 4096

	// DefaultInboundBufferCap bounds inbound buffering when [Config] does not
	// set its own. While at or over the cap, poll stops driving the source
	// until the guest consumes what is already buffered.
	DefaultInboundBufferCap = 64 * 1024
)

// ResponseAnnouncement carries the status code and headers a guest announced
// through send_response. It is delivered at most once per invocation.
type ResponseAnnouncement struct {
	Status  int
	Headers http.Header
}

// Config wires an EndpointState to one request/response exchange.
type Config struct {
	// RequestText is the request line and headers, readable by the guest
	// through read_request.
	RequestText string

	// Source streams the inbound request body.
	Source io.Reader

	// Sink consumes the outbound response body.
	Sink io.Writer

	// Notifier receives the one-shot response announcement. It should be
	// buffered; delivery is best-effort and never blocks.
	Notifier chan<- ResponseAnnouncement

	// InboundBufferCap overrides DefaultInboundBufferCap. Negative disables
	// the cap entirely.
	InboundBufferCap int

	// Logger traces host calls at debug level. Nil means no logging.
	Logger *zap.Logger
}

// EndpointState is the per-invocation state shared between the host
// functions and the surrounding framework. One guest invocation issues one
// host call at a time, so fields need no locking; the pumps exist so that
// poll can race I/O sources without ever mutating this state from another
// goroutine.
type EndpointState struct {
	requestText string

	inbound    bytes.Buffer
	inboundEOF bool
	inboundCap int

	outbound bytes.Buffer

	source   io.Reader
	sink     io.Writer
	notifier chan<- ResponseAnnouncement

	announced bool

	reads  *readPump
	writes *writePump

	logger *zap.Logger
}

// NewEndpointState builds the state for a single request/response exchange.
func NewEndpointState(cfg Config) *EndpointState {
	bufCap := cfg.InboundBufferCap
	if bufCap == 0 {
		bufCap = DefaultInboundBufferCap
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EndpointState{
		requestText: cfg.RequestText,
		inboundCap:  bufCap,
		source:      cfg.Source,
		sink:        cfg.Sink,
		notifier:    cfg.Notifier,
		logger:      logger,
	}
}

// Close stops the pump goroutines. Pumps blocked on the source or sink exit
// once the surrounding framework closes those; results they deliver after
// Close are dropped.
func (s *EndpointState) Close() {
	if s.reads != nil {
		close(s.reads.requests)
		s.reads = nil
	}
	if s.writes != nil {
		close(s.writes.requests)
		s.writes = nil
	}
}

type stateKey struct{}

// WithState returns a context carrying the per-invocation state. The host
// functions retrieve it from the context of the guest call.
func WithState(ctx context.Context, s *EndpointState) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

func stateFrom(ctx context.Context) *EndpointState {
	s, ok := ctx.Value(stateKey{}).(*EndpointState)
	if !ok {
		panic("hostfunc: no endpoint state in context")
	}
	return s
}

// readResult is one completed chunk read from the body source.
type readResult struct {
	data []byte
	err  error
}

// readPump owns the body source and performs at most one outstanding chunk
// read at a time. Poll requests a read and selects on results; a read whose
// round was won by another source stays pending and its bytes are applied
// by whichever later round receives the result. Nothing is lost and no
// state is touched off the guest's thread of control.
type readPump struct {
	requests chan struct{}
	results  chan readResult
	inflight bool
}

func newReadPump(src io.Reader) *readPump {
	p := &readPump{
		requests: make(chan struct{}),
		results:  make(chan readResult, 1),
	}
	go func() {
		buf := make([]byte, BodyChunkSize)
		for range p.requests {
			n, err := src.Read(buf)
			data := make([]byte, n)
			copy(data, buf[:n])
			p.results <- readResult{data: data, err: err}
		}
	}()
	return p
}

// writeResult is one completed write attempt against the body sink.
type writeResult struct {
	n   int
	err error
}

// writePump owns the body sink, same discipline as readPump: one
// outstanding write of a snapshot of the outbound buffer, advanced only
// when a poll round observes the completion.
type writePump struct {
	requests chan []byte
	results  chan writeResult
	inflight bool
}

func newWritePump(sink io.Writer) *writePump {
	p := &writePump{
		requests: make(chan []byte),
		results:  make(chan writeResult, 1),
	}
	go func() {
		for data := range p.requests {
			n, err := sink.Write(data)
			p.results <- writeResult{n: n, err: err}
		}
	}()
	return p
}
