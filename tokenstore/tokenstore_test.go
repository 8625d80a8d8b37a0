package tokenstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/go/test"
	"github.com/fintrack/go/tokenstore"
)

func stores(t *testing.T) map[string]tokenstore.Store {
	t.Helper()

	ctx := test.Context(t)

	sqlite, err := tokenstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "fintrack", "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	_, rdb := test.MiniRedis(t)

	return map[string]tokenstore.Store{
		"memory": tokenstore.NewMemory(),
		"sqlite": sqlite,
		"redis":  tokenstore.NewRedis(rdb),
	}
}

func TestStores(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := test.Context(t)

			_, err := s.Get(ctx, "access_token")
			assert.ErrorIs(t, err, tokenstore.ErrNotFound)

			require.NoError(t, s.Set(ctx, "access_token", "giraffe"))
			v, err := s.Get(ctx, "access_token")
			require.NoError(t, err)
			assert.Equal(t, "giraffe", v)

			require.NoError(t, s.Set(ctx, "access_token", "elephant"))
			v, err = s.Get(ctx, "access_token")
			require.NoError(t, err)
			assert.Equal(t, "elephant", v)

			require.NoError(t, s.Delete(ctx, "access_token"))
			_, err = s.Get(ctx, "access_token")
			assert.ErrorIs(t, err, tokenstore.ErrNotFound)

			// deleting a missing key is fine
			require.NoError(t, s.Delete(ctx, "access_token"))

			require.NoError(t, s.Set(ctx, "a", "1"))
			require.NoError(t, s.Set(ctx, "b", "2"))
			require.NoError(t, s.Clear(ctx))
			_, err = s.Get(ctx, "a")
			assert.ErrorIs(t, err, tokenstore.ErrNotFound)
			_, err = s.Get(ctx, "b")
			assert.ErrorIs(t, err, tokenstore.ErrNotFound)
		})
	}
}

func TestSQLitePersistsAcrossOpens(t *testing.T) {
	ctx := test.Context(t)
	path := filepath.Join(t.TempDir(), "tokens.db")

	s, err := tokenstore.OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "access_token", "moose"))
	require.NoError(t, s.Close())

	s, err = tokenstore.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, "moose", v)
}

func TestRedisPrefixAndTTL(t *testing.T) {
	ctx := test.Context(t)
	mr, rdb := test.MiniRedis(t)

	require.NoError(t, rdb.Set(ctx, "unrelated", "keep me", 0).Err())

	s := tokenstore.NewRedis(rdb, tokenstore.WithPrefix("app:"), tokenstore.WithTTL(time.Minute))
	require.NoError(t, s.Set(ctx, "access_token", "zebra"))

	v, err := mr.Get("app:access_token")
	require.NoError(t, err)
	assert.Equal(t, "zebra", v)
	assert.Equal(t, time.Minute, mr.TTL("app:access_token"))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists("app:access_token"))
	assert.True(t, mr.Exists("unrelated"))

	require.NoError(t, s.Set(ctx, "access_token", "zebra"))
	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, "access_token")
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestMemoryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tokenstore.NewMemory().Get(ctx, "access_token")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenSource(t *testing.T) {
	ctx := test.Context(t)
	s := tokenstore.NewMemory()
	src := tokenstore.TokenSource(s, tokenstore.DefaultTokenKey)

	tok, err := src.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Set(ctx, tokenstore.DefaultTokenKey, "okapi"))
	tok, err = src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "okapi", tok)
}
