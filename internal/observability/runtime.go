package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sandeepkv93/secure-session-auth-service/internal/config"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

type Runtime struct {
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
}

// InitRuntime starts the metric and trace pipelines. The log pipeline is
// owned by NewLogger's caller.
func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	tp, err := InitTracing(ctx, cfg, logger)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, err
	}
	return &Runtime{MeterProvider: mp, TracerProvider: tp}, nil
}

// Shutdown flushes every provider concurrently and joins their errors.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var shutdowns []func(context.Context) error
	if r.MeterProvider != nil {
		shutdowns = append(shutdowns, r.MeterProvider.Shutdown)
	}
	if r.TracerProvider != nil {
		shutdowns = append(shutdowns, r.TracerProvider.Shutdown)
	}

	errs := make([]error, len(shutdowns))
	var g errgroup.Group
	for i, fn := range shutdowns {
		g.Go(func() error {
			errs[i] = fn(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
