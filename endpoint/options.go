package endpoint

import (
	"io"
	"time"

	"go.uber.org/zap"
)

// Option configures an [Executor] at creation time.
type Option func(*config)

type config struct {
	timeout          time.Duration
	memoryLimitPages uint32
	inboundBufferCap int
	cacheDir         string
	logger           *zap.Logger
	stdout           io.Writer
	stderr           io.Writer
}

func defaultConfig() config {
	return config{
		timeout: 30 * time.Second,
		logger:  zap.NewNop(),
		stdout:  io.Discard,
		stderr:  io.Discard,
	}
}

// WithTimeout bounds each guest invocation. Zero disables the deadline;
// guests then control their own timing through timeout subscriptions.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithMemoryLimit sets the maximum guest memory in 64KB pages.
// 0 means the wazero default (65536 pages = 4GB).
func WithMemoryLimit(pages uint32) Option {
	return func(c *config) {
		c.memoryLimitPages = pages
	}
}

// WithInboundBufferCap bounds inbound body buffering per invocation.
// Negative disables the bound; see hostfunc.DefaultInboundBufferCap for
// the default.
func WithInboundBufferCap(n int) Option {
	return func(c *config) {
		c.inboundBufferCap = n
	}
}

// WithDiskCache enables a persistent compilation cache in dir, avoiding
// recompilation of the guest across process restarts.
func WithDiskCache(dir string) Option {
	return func(c *config) {
		c.cacheDir = dir
	}
}

// WithLogger sets the logger for server lifecycle and ABI call tracing
// (the latter at debug level).
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithGuestStdout redirects the guest's stdout, discarded by default.
func WithGuestStdout(w io.Writer) Option {
	return func(c *config) {
		c.stdout = w
	}
}

// WithGuestStderr redirects the guest's stderr, discarded by default.
func WithGuestStderr(w io.Writer) Option {
	return func(c *config) {
		c.stderr = w
	}
}
