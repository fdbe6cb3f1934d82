package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Audit writes a security event record. When ctx carries a sampled span the
// record is tagged with its trace and span IDs.
func Audit(ctx context.Context, logger *slog.Logger, event string, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	base := make([]any, 0, len(attrs)+6)
	base = append(base, "event", event)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		base = append(base, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	base = append(base, attrs...)
	logger.InfoContext(ctx, "audit", base...)
}
