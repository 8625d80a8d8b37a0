// Package telemetry wires OpenTelemetry tracing and metrics for fintrack.
//
// Nothing is exported unless OTEL_EXPORTER_OTLP_ENDPOINT is set: without it the
// global no-op providers stay in place and instrumented code costs next to
// nothing.
package telemetry

import (
	"context"
	"errors"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/fintrack/go/logging"
)

const serviceName = "fintrack"

var logger = logging.New("telemetry")

// Enabled reports whether an OTLP endpoint has been configured.
func Enabled() bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// Init installs OTLP tracer and meter providers if an endpoint is configured.
func Init(ctx context.Context) error {
	if !Enabled() {
		logger.Debug("telemetry will not be exported via OTLP (OTEL_EXPORTER_OTLP_ENDPOINT is not set)")
		return nil
	}

	res := newResource(ctx)

	tp, err := createTracerProvider(ctx, res)
	if err != nil {
		return err
	}

	mp, err := createMeterProvider(ctx, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	logger.Info("exporting telemetry via OTLP")

	return nil
}

func Shutdown(ctx context.Context) error {
	var errs []error
	if tp, ok := otel.GetTracerProvider().(*trace.TracerProvider); ok && tp != nil {
		errs = append(errs, tp.Shutdown(ctx))
	}
	if mp, ok := otel.GetMeterProvider().(*metric.MeterProvider); ok && mp != nil {
		errs = append(errs, mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
