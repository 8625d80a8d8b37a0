package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/go/test"
)

func TestTryAcquireReturnsLockWhenSetSucceeds(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	locker := Locker{Client: client, tokenGenerator: func() string { return "giraffe" }}

	mock.ExpectSetNX("somekey", "giraffe", time.Second).SetVal(true)

	l, err := locker.TryAcquire(ctx, "somekey", time.Second)

	assert.NoError(t, err)
	assert.NotNil(t, l)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAcquireReturnsErrLockNotAcquiredWhenHeld(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	locker := Locker{Client: client, tokenGenerator: func() string { return "elephant" }}

	mock.ExpectSetNX("somekey", "elephant", time.Second).SetVal(false)

	l, err := locker.TryAcquire(ctx, "somekey", time.Second)

	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.Nil(t, l)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAcquireReturnsRedisErrors(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	locker := Locker{Client: client, tokenGenerator: func() string { return "moose" }}

	boom := errors.New("connection reset")
	mock.ExpectSetNX("somekey", "moose", time.Second).SetErr(boom)

	_, err := locker.TryAcquire(ctx, "somekey", time.Second)

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryAcquireAfterRelease(t *testing.T) {
	ctx := test.Context(t)
	_, rdb := test.MiniRedis(t)
	locker := NewLocker(rdb)
	require.NoError(t, locker.Prepare(ctx))

	first, err := locker.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	_, err = locker.TryAcquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	require.NoError(t, first.Release(ctx))

	second, err := locker.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, second.Release(ctx))
}

func TestReleaseOfExpiredLock(t *testing.T) {
	ctx := test.Context(t)
	mr, rdb := test.MiniRedis(t)
	locker := NewLocker(rdb)

	l, err := locker.TryAcquire(ctx, "k", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	other, err := locker.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, l.Release(ctx), ErrLockNotHeld)
	assert.True(t, mr.Exists("k"), "release must not delete a lock held by someone else")
	assert.NoError(t, other.Release(ctx))
	assert.False(t, mr.Exists("k"))
}

func TestMutualExclusion(t *testing.T) {
	ctx := test.Context(t)
	_, rdb := test.MiniRedis(t)
	locker := NewLocker(rdb)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)

	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := locker.TryAcquire(ctx, "shared", time.Minute)
			if err == nil {
				winners.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrLockNotAcquired)
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}
