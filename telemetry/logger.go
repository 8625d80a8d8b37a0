package telemetry

import (
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func init() {
	otel.SetLogger(logr.New(&logSink{logger: logger}))
}

// logSink routes opentelemetry-go's internal logr output into zap.
type logSink struct {
	logger *zap.Logger
}

func (s *logSink) Init(info logr.RuntimeInfo) {
	// +1 for this sink, +1 for opentelemetry-go's internal_logging.go
	s.logger = s.logger.WithOptions(zap.AddCallerSkip(info.CallDepth + 2))
}

func (s *logSink) Enabled(level int) bool {
	return s.logger.Core().Enabled(otelLevel(level))
}

func (s *logSink) Info(level int, msg string, keysAndValues ...any) {
	s.logger.Sugar().Logw(otelLevel(level), msg, keysAndValues...)
}

func (s *logSink) Error(err error, msg string, keysAndValues ...any) {
	s.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

func (s *logSink) WithValues(keysAndValues ...any) logr.LogSink {
	return &logSink{logger: s.logger.Sugar().With(keysAndValues...).Desugar()}
}

func (s *logSink) WithName(name string) logr.LogSink {
	return &logSink{logger: s.logger.Named(name)}
}

// otelLevel maps opentelemetry-go's verbosity levels (0 warn, 1-4 info, 8
// debug) onto zap levels.
func otelLevel(level int) zapcore.Level {
	switch {
	case level <= 1:
		return zapcore.WarnLevel
	case level <= 4:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
