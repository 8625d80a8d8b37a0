package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	ferrors "github.com/fintrack/go/errors"
)

func init() {
	otel.SetErrorHandler(errorHandler{})
}

// errorHandler receives errors raised inside the OpenTelemetry SDK, which are
// mostly failed exports. They never reach the caller, so they are logged and
// reported.
type errorHandler struct{}

func (errorHandler) Handle(err error) {
	// +1 for this handler, +3 for opentelemetry-go's global error delegation
	logger.WithOptions(zap.AddCallerSkip(4)).Warn("opentelemetry error", zap.Error(err))
	ferrors.Report(err)
}
