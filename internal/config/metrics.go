package config

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ParseError reports an environment value that could not be converted.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string { return "parse " + e.Key + ": " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidError wraps every problem found by Validate.
type InvalidError struct {
	Err error
}

func (e *InvalidError) Error() string { return "validate config: " + e.Err.Error() }

func (e *InvalidError) Unwrap() error { return e.Err }

var (
	configMetricsOnce sync.Once
	configCounter     metric.Int64Counter
)

func recordConfigValidationEvent(ctx context.Context, profile string, err error) {
	configMetricsOnce.Do(func() {
		counter, cerr := otel.Meter("secure-session-auth-service/config").Int64Counter("config.validation.events")
		if cerr == nil {
			configCounter = counter
		}
	})
	if configCounter == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("profile", normalizeConfigProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", classifyConfigLoadError(err)),
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		attrs = append(attrs, attribute.String("key", pe.Key))
	}
	configCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

var profileAliases = map[string]string{
	"dev":  "development",
	"prod": "production",
	"stg":  "staging",
}

func normalizeConfigProfile(profile string) string {
	v := strings.TrimSpace(strings.ToLower(profile))
	if v == "" {
		return "unknown"
	}
	if alias, ok := profileAliases[v]; ok {
		return alias
	}
	return v
}

func classifyConfigLoadError(err error) string {
	var (
		pe *ParseError
		ie *InvalidError
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &ie):
		return "validation"
	case errors.As(err, &pe):
		return "parse"
	default:
		return "load"
	}
}
