// Package lock implements a best-effort mutual exclusion lock held in Redis.
//
// It is meant for locking for efficiency, such as making sure only one
// process refills a cache entry, and must not be relied on for correctness:
// a lock silently expires after its TTL whether or not its holder is done.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/ksuid"
)

// releaseScript deletes the key only while it still holds our token, so a lock
// which expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var (
	ErrLockNotAcquired = errors.New("lock: did not acquire lock")
	ErrLockNotHeld     = errors.New("lock: lock was not held")
)

type Locker struct {
	Client redis.Cmdable

	tokenGenerator func() string // test seam
}

func NewLocker(client redis.Cmdable) *Locker {
	return &Locker{Client: client}
}

type Lock interface {
	Release(context.Context) error
}

type lock struct {
	client redis.Cmdable
	key    string
	token  string
}

// Prepare loads the release script so that later releases can use EVALSHA.
// Calling it is optional.
func (l *Locker) Prepare(ctx context.Context) error {
	return releaseScript.Load(ctx, l.Client).Err()
}

// TryAcquire takes the lock at key for ttl, or returns ErrLockNotAcquired if
// it is currently held.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	gen := l.tokenGenerator
	if gen == nil {
		gen = generateKSUID
	}
	token := gen()

	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &lock{client: l.Client, key: key, token: token}, nil
}

// Release frees the lock. It returns ErrLockNotHeld if the lock already
// expired or now belongs to someone else.
func (l *lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrLockNotHeld
	}
	return nil
}

func generateKSUID() string {
	return ksuid.New().String()
}
