package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewConfigLevel(t *testing.T) {
	testcases := []struct {
		Name     string
		Level    string
		Expected zapcore.Level
	}{
		{Name: "garbage falls back to info", Level: "garbage", Expected: zapcore.InfoLevel},
		{Name: "warning is treated as warn", Level: "warning", Expected: zapcore.WarnLevel},
		{Name: "upper case", Level: "WARN", Expected: zapcore.WarnLevel},
		{Name: "error", Level: "error", Expected: zapcore.ErrorLevel},
	}

	for _, tc := range testcases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Setenv("LOG_FORMAT", "")
			t.Setenv("LOG_LEVEL", tc.Level)

			assert.Equal(t, tc.Expected, NewConfig().Level.Level())
		})
	}
}

func TestNewConfigFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "yaml")
	assert.Equal(t, "json", NewConfig().Encoding)

	t.Setenv("LOG_FORMAT", "development")
	assert.Equal(t, "console", NewConfig().Encoding)
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetFields(ctx))

	ctx = AddFields(ctx, zap.String("retry_key", "GET:/accounts"))
	child := AddFields(ctx, zap.Int("attempt", 2))

	require.Len(t, GetFields(ctx), 1)
	require.Len(t, GetFields(child), 2)
	assert.Equal(t, "attempt", GetFields(child)[1].Key)
}

func TestSetLevel(t *testing.T) {
	original := baseConfig.Level.Level()
	t.Cleanup(func() { baseConfig.Level.SetLevel(original) })

	require.NoError(t, SetLevel("debug"))
	assert.True(t, New("test").Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, SetLevel("loud"))
}
