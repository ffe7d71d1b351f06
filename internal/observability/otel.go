// Package observability wires the OpenTelemetry tracer provider. Tracing is
// opt-in: with the exporter set to "none" the globals stay no-op and spans
// cost nothing.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/eshbtc/travelcheck-sub000/internal/platform/config"
)

const serviceName = "travelcheck"

// Init configures the global tracer provider per the telemetry config and
// returns a shutdown function for main to defer. Exporter failures degrade
// to no tracing rather than refusing to start; the engine works fine
// untraced.
func Init(ctx context.Context, logger *slog.Logger, cfg config.TelemetryConfig) func(context.Context) error {
	noop := func(context.Context) error { return nil }

	if cfg.Exporter == "" || cfg.Exporter == "none" {
		return noop
	}

	exporter, err := buildExporter(ctx, cfg)
	if err != nil {
		logger.Warn("otel exporter init failed, tracing disabled", "exporter", cfg.Exporter, "error", err)
		return noop
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		logger.Warn("otel resource init failed (continuing)", "error", err)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("otel tracing initialized", "exporter", cfg.Exporter, "sample_ratio", ratio)
	return tp.Shutdown
}

func buildExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
}
