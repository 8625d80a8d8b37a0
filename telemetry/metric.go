package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/fintrack/go/version"
)

// CLI invocations are short, so metrics are pushed more often than a
// server would. Shutdown flushes whatever is left.
const metricInterval = 5 * time.Second

// Meter returns the meter for a component of a fintrack package. It is named
// like the component's tracer.
func Meter(service string, component string, opts ...metric.MeterOption) metric.Meter {
	opts = append(opts, metric.WithInstrumentationVersion(version.Version()))
	return otel.Meter(scopeName(service, component), opts...)
}

func createMeterProvider(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(metricInterval))),
	), nil
}
