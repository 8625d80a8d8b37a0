package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.uber.org/zap/zapcore"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	require.NoError(t, Init(context.Background()))
	assert.False(t, Enabled())

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.False(t, ok)
}

func TestCreateProviders(t *testing.T) {
	// Shutting the meter provider down flushes a final export, so the
	// endpoint has to accept it.
	var exports atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exports.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(collector.Close)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", collector.URL)

	ctx := context.Background()
	res := newResource(ctx)

	tp, err := createTracerProvider(ctx, res)
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := createMeterProvider(ctx, res)
	require.NoError(t, err)
	assert.NoError(t, mp.Shutdown(ctx))
	assert.Positive(t, exports.Load())
}

func TestResourceNamesService(t *testing.T) {
	res := newResource(context.Background())

	v, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "fintrack", v.AsString())
}

func TestScopeName(t *testing.T) {
	assert.Equal(t, "fintrack/apiclient/client", scopeName("apiclient", "client"))
}

func TestOtelLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, otelLevel(0))
	assert.Equal(t, zapcore.InfoLevel, otelLevel(4))
	assert.Equal(t, zapcore.DebugLevel, otelLevel(8))
}
