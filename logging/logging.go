// Package logging configures the zap loggers shared by every fintrack package.
//
// The output format is controlled by LOG_FORMAT ("development" selects a
// colored console encoder, anything else selects JSON) and the level by
// LOG_LEVEL.
package logging

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	baseConfig = NewConfig()
	baseLogger = zap.Must(baseConfig.Build())
)

type contextKey int

const (
	contextFieldsKey contextKey = iota
)

func NewConfig() zap.Config {
	var config zap.Config

	if os.Getenv("LOG_FORMAT") == "development" {
		config = newDevelopmentConfig()
	} else {
		config = newProductionConfig()
	}

	if level, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if strings.ToLower(level) == "warning" {
			level = "warn"
		}
		if lvl, err := zap.ParseAtomicLevel(level); err == nil {
			config.Level = lvl
		}
	}

	return config
}

func newDevelopmentConfig() zap.Config {
	return zap.Config{
		Level:             zap.NewAtomicLevelAt(zap.DebugLevel),
		Development:       true,
		DisableStacktrace: true,
		Encoding:          "console",
		EncoderConfig:     newDevelopmentEncoderConfig(),
		OutputPaths:       []string{"stderr"},
	}
}

// The CLI writes command output to stdout, so production logs go to stderr.
func newProductionConfig() zap.Config {
	return zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:      "json",
		EncoderConfig: newProductionEncoderConfig(),
		OutputPaths:   []string{"stderr"},
	}
}

func newDevelopmentEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := newProductionEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.NameKey = ""
	return encoderConfig
}

func newProductionEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "severity",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// New creates a new logger with a default "logger" field so we can identify the
// source of log messages.
func New(name string) *zap.Logger {
	return baseLogger.Named(name)
}

// SetLevel changes the level of every logger returned by New. The CLI uses it
// to honour the configured log level after the environment has been read.
func SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	baseConfig.Level.SetLevel(lvl)
	return nil
}

func GetFields(ctx context.Context) []zap.Field {
	f, ok := ctx.Value(contextFieldsKey).([]zap.Field)
	if !ok {
		return []zap.Field{}
	}
	return f
}

func AddFields(ctx context.Context, fields ...zap.Field) context.Context {
	existing := GetFields(ctx)
	f := make([]zap.Field, 0, len(existing)+len(fields))
	f = append(f, existing...)
	f = append(f, fields...)
	return context.WithValue(ctx, contextFieldsKey, f)
}

// With returns logger annotated with any fields stored on ctx.
func With(ctx context.Context, logger *zap.Logger) *zap.Logger {
	return logger.With(GetFields(ctx)...)
}
