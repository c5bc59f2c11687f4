// Package telemetry installs the node's tracer provider: an OTLP
// exporter when a collector endpoint is configured, or a stdout
// exporter for local/dev runs, so every RPC handled through
// internal/rpc's otelgrpc stats handler produces a span.
package telemetry

import (
	"context"
	"fmt"

	"chordring/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Shutdown flushes and tears down the installed tracer provider.
type Shutdown func(context.Context) error

// noopShutdown is returned when tracing is disabled: Init always
// returns a callable shutdown so callers never need a nil check.
func noopShutdown(context.Context) error { return nil }

// Init installs a global TracerProvider for serviceName/nodeID per
// cfg, and returns the function to call at node shutdown. Disabled
// tracing leaves the global no-op provider in place.
func Init(ctx context.Context, cfg config.TracingConfig, serviceName, nodeID string) (Shutdown, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceInstanceIDKey.String(nodeID),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	if cfg.OTLPEndpoint != "" {
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: build otlp exporter: %w", err)
		}
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetry: build stdout exporter: %w", err)
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Tracer returns the package-level tracer for this node's routing
// operations, named distinctly from the gRPC stats-handler spans.
func Tracer() trace.Tracer {
	return otel.Tracer("chordring/ring")
}
