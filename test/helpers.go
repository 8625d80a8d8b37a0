// Package test contains helpers shared by the test suites of other packages.
package test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func Context(t testing.TB) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx
}

func MiniRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

// MiniRedisURL starts a miniredis server and returns a redis:// URL for it.
func MiniRedisURL(t testing.TB) string {
	t.Helper()

	mr := miniredis.RunT(t)
	return "redis://" + mr.Addr()
}
