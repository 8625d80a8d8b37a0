package kv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/go/kv"
	"github.com/fintrack/go/test"
)

func TestNewInvalidURL(t *testing.T) {
	_, err := kv.New(context.Background(), "invalid_test", "invalid://")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	client, err := kv.New(
		ctx,
		"tokens",
		test.MiniRedisURL(t),
		kv.WithPoolSize(4),
		kv.WithTimeouts(time.Second, time.Second),
		kv.WithAutoTLS("/does/not/matter/without/tls"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, 4, client.Options().PoolSize)
	assert.Equal(t, time.Second, client.Options().ReadTimeout)

	require.NoError(t, client.Set(ctx, "fintrack:ping", "1", 0).Err())
	v, err := client.Get(ctx, "fintrack:ping").Result()
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestNewPingFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	_, err := kv.New(ctx, "down", "redis://127.0.0.1:1", kv.WithTimeouts(100*time.Millisecond, 0))
	assert.ErrorContains(t, err, "failed to ping redis (down)")
}

func TestWithAutoTLSBadCAFile(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "ca.crt")
	require.NoError(t, os.WriteFile(caFile, []byte("not a certificate"), 0o600))

	_, err := kv.New(context.Background(), "tls", "rediss://localhost:6380", kv.WithAutoTLS(caFile))
	assert.ErrorContains(t, err, "failed to load certs from CA file")
}
