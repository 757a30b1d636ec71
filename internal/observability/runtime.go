package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sandeepkv93/secure-login-portal/internal/config"
)

// Runtime owns the telemetry providers and the process resources that must be
// released before telemetry is flushed (session store, Redis, database).
type Runtime struct {
	LoggerProvider *sdklog.LoggerProvider
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider

	logger  *slog.Logger
	mu      sync.Mutex
	closers []resourceCloser
}

type resourceCloser struct {
	name  string
	close func(context.Context) error
}

// NewRuntime returns a Runtime without exporters. Resources registered on it
// are still closed by Shutdown.
func NewRuntime(logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{logger: logger}
}

func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	lp, err := InitLogs(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		if lp != nil {
			_ = lp.Shutdown(ctx)
		}
		return nil, err
	}
	tp, err := InitTracing(ctx, cfg, logger)
	if err != nil {
		_ = mp.Shutdown(ctx)
		if lp != nil {
			_ = lp.Shutdown(ctx)
		}
		return nil, err
	}
	r := NewRuntime(logger)
	r.LoggerProvider, r.MeterProvider, r.TracerProvider = lp, mp, tp
	return r, nil
}

// OnShutdown registers a resource to close during Shutdown. Resources close in
// reverse registration order, so dependents registered later go first.
func (r *Runtime) OnShutdown(name string, fn func(context.Context) error) {
	if r == nil || fn == nil {
		return
	}
	r.mu.Lock()
	r.closers = append(r.closers, resourceCloser{name: name, close: fn})
	r.mu.Unlock()
}

// Shutdown closes registered resources, then flushes traces, metrics and logs.
// Logs go last so failures from earlier stages are still exported. Every stage
// runs even when an earlier one fails; all failures are returned joined.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.close(ctx); err != nil {
			r.logger.ErrorContext(ctx, "failed to close resource", "resource", c.name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}

	if r.TracerProvider != nil {
		if err := r.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if r.MeterProvider != nil {
		if err := r.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	if r.LoggerProvider != nil {
		if err := r.LoggerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown logger provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
