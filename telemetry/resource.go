package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"github.com/fintrack/go/version"
)

// newResource describes the running client. A detector failing leaves a
// partial resource, which is still used.
func newResource(ctx context.Context) *resource.Resource {
	res, err := resource.New(
		ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithOS(),
		resource.WithProcessRuntimeName(),
		resource.WithProcessRuntimeVersion(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version.Version()),
		),
	)
	if err != nil && !errors.Is(err, resource.ErrPartialResource) {
		otel.Handle(err)
	}
	if res == nil {
		return resource.Empty()
	}
	return res
}
