package endpoint

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wasmgate/wasmgate/hostfunc"
)

// Executor serves HTTP requests by running a compiled guest module once per
// request. The guest is compiled at construction time; every request gets
// an anonymous instance wired to its own [hostfunc.EndpointState], so
// concurrent requests are fully isolated.
type Executor struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled wazero.CompiledModule
	cfg      config
}

var _ http.Handler = (*Executor)(nil)

// New compiles guest wasm on a fresh runtime with the wasmgate host module
// and WASI preview1 available to it.
func New(ctx context.Context, guest []byte, opts ...Option) (*Executor, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var cache wazero.CompilationCache
	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.cacheDir != "" {
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(cfg.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create compilation cache: %w", err)
		}
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)

	closeAll := func() {
		rt.Close(ctx)
		if cache != nil {
			cache.Close(ctx)
		}
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		closeAll()
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	if _, err := hostfunc.Instantiate(ctx, rt); err != nil {
		closeAll()
		return nil, err
	}

	compiled, err := rt.CompileModule(ctx, guest)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("compile guest module: %w", err)
	}

	return &Executor{
		runtime:  rt,
		cache:    cache,
		compiled: compiled,
		cfg:      cfg,
	}, nil
}

// ServeHTTP runs one guest invocation for r and relays the announced
// status, headers and streamed body to w.
func (e *Executor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if e.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.timeout)
		defer cancel()
	}

	announcements := make(chan hostfunc.ResponseAnnouncement, 1)
	pr, pw := io.Pipe()
	defer pr.Close()

	state := hostfunc.NewEndpointState(hostfunc.Config{
		RequestText:      requestText(r),
		Source:           r.Body,
		Sink:             pw,
		Notifier:         announcements,
		InboundBufferCap: e.cfg.inboundBufferCap,
		Logger:           e.cfg.logger,
	})
	defer state.Close()

	done := make(chan error, 1)
	go func() {
		defer pw.Close()
		done <- e.runInstance(hostfunc.WithState(ctx, state))
	}()

	select {
	case ann := <-announcements:
		for name, values := range ann.Headers {
			for _, value := range values {
				w.Header().Add(name, value)
			}
		}
		w.WriteHeader(ann.Status)
		if _, err := io.Copy(w, pr); err != nil {
			e.cfg.logger.Debug("response body copy aborted", zap.Error(err))
		}
		if err := <-done; err != nil {
			// Status and headers are already on the wire; the truncated
			// body is all the client can be told.
			e.cfg.logger.Warn("guest failed after announcing response", zap.Error(err))
		}

	case err := <-done:
		if err != nil {
			e.cfg.logger.Warn("guest invocation failed", zap.Error(err))
			http.Error(w, "guest failure", http.StatusInternalServerError)
			return
		}
		// A late announcement may have raced the guest's exit.
		select {
		case ann := <-announcements:
			for name, values := range ann.Headers {
				for _, value := range values {
					w.Header().Add(name, value)
				}
			}
			w.WriteHeader(ann.Status)
			io.Copy(w, pr)
		default:
			e.cfg.logger.Warn("guest exited without announcing a response")
			http.Error(w, "no response from guest", http.StatusInternalServerError)
		}
	}
}

func (e *Executor) runInstance(ctx context.Context) error {
	moduleConfig := wazero.NewModuleConfig().
		WithName("").
		WithStdout(e.cfg.stdout).
		WithStderr(e.cfg.stderr)

	mod, err := e.runtime.InstantiateModule(ctx, e.compiled, moduleConfig)
	if mod != nil {
		mod.Close(ctx)
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("timeout after %v", e.cfg.timeout)
		}
		return fmt.Errorf("guest execution: %w", err)
	}
	return nil
}

// Close releases the runtime and compilation cache.
func (e *Executor) Close() error {
	ctx := context.Background()

	var errs error
	errs = multierr.Append(errs, e.runtime.Close(ctx))
	if e.cache != nil {
		errs = multierr.Append(errs, e.cache.Close(ctx))
	}
	return errs
}
