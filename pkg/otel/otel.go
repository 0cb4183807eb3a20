// Package otel wires OpenTelemetry tracing for the service.
package otel

import (
	"context"
	"fmt"
	"net/http"

	gotel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"cartflow/pkg/logger"
)

// Config describes the trace exporter.
type Config struct {
	ServiceName string
	Host        string
	Probability float64
}

type ctxKey int

const tracerKey ctxKey = 1

// InitTracing installs a global tracer provider exporting over OTLP gRPC to
// cfg.Host. With no host, a no-op provider is returned.
func InitTracing(log *logger.Logger, cfg Config) (trace.TracerProvider, func(context.Context) error, error) {
	gotel.SetTextMapPropagator(propagation.TraceContext{})

	if cfg.Host == "" {
		log.Info(context.Background(), "tracing disabled", "reason", "no exporter host")
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(cfg.Host),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Probability))),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	)
	gotel.SetTracerProvider(tp)

	log.Info(context.Background(), "tracing enabled", "host", cfg.Host, "probability", cfg.Probability)
	return tp, tp.Shutdown, nil
}

// InjectTracing stores tracer in ctx for later AddSpan calls.
func InjectTracing(ctx context.Context, tracer trace.Tracer) context.Context {
	return context.WithValue(ctx, tracerKey, tracer)
}

// AddSpan starts a span named name using the tracer carried by ctx, or the
// global one.
func AddSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer, ok := ctx.Value(tracerKey).(trace.Tracer)
	if !ok {
		tracer = gotel.Tracer("cartflow")
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace id of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// ExtractHTTP continues a trace propagated through request headers.
func ExtractHTTP(ctx context.Context, h http.Header) context.Context {
	return gotel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(h))
}

// InjectHTTP propagates the trace in ctx into outgoing request headers.
func InjectHTTP(ctx context.Context, h http.Header) {
	gotel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
}
