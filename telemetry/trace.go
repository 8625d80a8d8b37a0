package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/fintrack/go/version"
)

// Outgoing API calls carry the W3C trace context so server spans join the
// client's trace.
func init() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// Tracer returns the tracer for a component of a fintrack package, named
// fintrack/<service>/<component>.
func Tracer(service string, component string, opts ...trace.TracerOption) trace.Tracer {
	opts = append(opts, trace.WithInstrumentationVersion(version.Version()))
	return otel.Tracer(scopeName(service, component), opts...)
}

func scopeName(service, component string) string {
	return fmt.Sprintf("%s/%s/%s", serviceName, service, component)
}

// createTracerProvider batches spans to the OTLP/HTTP endpoint configured by
// the standard OTEL_EXPORTER_OTLP_* variables.
func createTracerProvider(ctx context.Context, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := otlptrace.New(ctx, otlptracehttp.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}
