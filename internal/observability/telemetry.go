// Package observability wires OpenTelemetry trace export into Genkit.
//
// Genkit owns the TracerProvider and already instruments every model
// call with spans. This package only attaches an OTLP HTTP exporter to
// that provider, so traces flow to whatever collector the deployment
// runs (an OTel Collector, Jaeger, a vendor agent) without the rest of
// the code knowing about it.
//
// Export is opt-in. With Enabled false Setup returns a no-op shutdown
// and touches nothing, which keeps local development free of collector
// noise.
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/foodsave-ai/foodsave/internal/log"
)

// DefaultEndpoint is the conventional local OTLP HTTP endpoint.
const DefaultEndpoint = "localhost:4318"

// Config for trace export.
type Config struct {
	// Enabled turns export on. Everything below is ignored when false.
	Enabled bool

	// Endpoint is the OTLP HTTP collector address, host:port.
	Endpoint string

	// ServiceName and Environment become resource attributes on every
	// exported span.
	ServiceName string
	Environment string
}

// Setup attaches an OTLP exporter to Genkit's TracerProvider. Must run
// before genkit.Init so the provider picks up the span processor and
// the OTEL_* resource attributes.
//
// The returned shutdown flushes pending spans; it is never nil. An
// unreachable collector does not fail startup, the exporter buffers and
// drops on its own.
func Setup(ctx context.Context, cfg Config, logger log.Logger) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit's TracerProvider reads resource attributes from the OTEL
	// env vars. Setup runs once during startup, before any goroutines,
	// so the Setenv calls are safe.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return noop, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
