// Package cache implements a typed read-through cache in Redis which serves
// stale values while it refreshes them in the background.
//
// Each entry has two lifetimes. While it is fresh it is returned as is. Once
// it is stale it is still returned, but the first reader to take the refresh
// lock also refetches it. After the stale lifetime the entry is gone and the
// next reader fetches synchronously.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fintrack/go/lock"
	"github.com/fintrack/go/logging"
	"github.com/fintrack/go/telemetry"
)

const keyPrefix = "fintrack:cache"

var (
	logger = logging.New("cache")
	tracer = telemetry.Tracer("cache", "cache")

	errCacheMiss = errors.New("value not in cache")

	// ErrDoesNotExist is returned when the non-existence of a key is cached.
	// Fetchers return it to have non-existence cached.
	ErrDoesNotExist = errors.New("cache: requested item does not exist")

	// ErrDisallowedCacheValue is returned by Set for the zero value of T.
	ErrDisallowedCacheValue = errors.New("cache: nil and zero values are not permitted")
)

type Fetcher[T any] func(ctx context.Context, key string) (T, error)

type Cache[T any] struct {
	name   string
	opts   options
	client redis.Cmdable
	locker *lock.Locker
}

// New returns a cache named name which stores entries in client. Entries are
// fresh for fresh and served stale for up to stale after being written.
func New[T any](client redis.Cmdable, name string, fresh, stale time.Duration, opts ...Option) *Cache[T] {
	c := &Cache[T]{
		name:   name,
		client: client,
		locker: lock.NewLocker(client),
		opts: options{
			fresh:   fresh,
			stale:   stale,
			timeout: 5 * time.Second,
		},
	}
	for _, o := range opts {
		o.apply(&c.opts)
	}
	return c
}

func (c *Cache[T]) Prepare(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.locker.Prepare(ctx)
}

// Get returns the value for key, calling fetcher on a miss. If Redis fails the
// value is fetched directly. A nil *Cache always calls fetcher.
func (c *Cache[T]) Get(ctx context.Context, key string, fetcher Fetcher[T]) (T, error) {
	log := logging.With(ctx, logger)

	if c == nil {
		return fetcher(ctx, key)
	}

	value, err := c.fetch(ctx, key, fetcher)
	switch {
	case err == nil, errors.Is(err, ErrDoesNotExist):
		return value, err
	case errors.Is(err, errCacheMiss):
		ctx, span := tracer.Start(ctx, "cache.miss",
			trace.WithAttributes(c.spanAttributes(key)...),
			trace.WithAttributes(attribute.String("cache.miss", "hard")),
		)
		defer span.End()
		return c.fill(ctx, key, fetcher)
	default:
		log.Warn("cache read failed: fetching directly", zap.String("cache", c.name), zap.Error(err))
		return fetcher(ctx, key)
	}
}

// Set stores value under key, replacing any cached non-existence.
func (c *Cache[T]) Set(ctx context.Context, key string, value T) error {
	if c == nil {
		return nil
	}
	if reflect.ValueOf(&value).Elem().IsZero() {
		return ErrDisallowedCacheValue
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()

	k := c.keysFor(key)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, k.negative)
	pipe.Set(ctx, k.data, string(data), c.opts.stale)
	pipe.Set(ctx, k.fresh, 1, c.opts.fresh)
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate drops everything cached for key.
func (c *Cache[T]) Invalidate(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	k := c.keysFor(key)
	return c.client.Del(ctx, k.data, k.fresh, k.negative).Err()
}

func (c *Cache[T]) fetch(ctx context.Context, key string, fetcher Fetcher[T]) (value T, err error) {
	k := c.keysFor(key)

	result, err := c.client.MGet(ctx, k.fresh, k.data, k.negative).Result()
	if err != nil {
		return value, err
	}
	if len(result) != 3 {
		return value, fmt.Errorf("incorrect number of values from redis: got %d, expected 3", len(result))
	}
	fresh, data, negative := result[0], result[1], result[2]

	if negative != nil {
		return value, ErrDoesNotExist
	}
	if data == nil {
		return value, errCacheMiss
	}
	if fresh == nil {
		c.refresh(ctx, key, fetcher)
	}

	s, ok := data.(string)
	if !ok {
		return value, fmt.Errorf("unable to interpret redis value as string: %v", data)
	}
	if err := json.Unmarshal([]byte(s), &value); err != nil {
		return value, err
	}
	return value, nil
}

// fill fetches the value and stores it. Failures to write the cache are
// recorded but not returned.
func (c *Cache[T]) fill(ctx context.Context, key string, fetcher Fetcher[T]) (T, error) {
	log := logging.With(ctx, logger).With(zap.String("cache", c.name))
	span := trace.SpanFromContext(ctx)

	value, err := fetcher(ctx, key)
	if errors.Is(err, ErrDoesNotExist) {
		span.SetAttributes(attribute.String("cache.result", "negative"))
		if setErr := c.setNegative(ctx, key); setErr != nil {
			recordError(ctx, setErr)
			log.Warn("cache set negative failed", zap.Error(setErr))
		}
		return value, err
	} else if err != nil {
		span.SetAttributes(attribute.String("cache.result", "error"))
		span.SetStatus(codes.Error, err.Error())
		return value, err
	}

	span.SetAttributes(attribute.String("cache.result", "success"))
	if setErr := c.Set(ctx, key, value); setErr != nil {
		recordError(ctx, setErr)
		log.Warn("cache fill failed", zap.Error(setErr))
	}
	return value, nil
}

func (c *Cache[T]) setNegative(ctx context.Context, key string) error {
	if c.opts.negative == 0 {
		return nil
	}
	return c.client.Set(ctx, c.keysFor(key).negative, 1, c.opts.negative).Err()
}

// refresh refills a stale entry in the background if nobody else is already
// doing so.
func (c *Cache[T]) refresh(ctx context.Context, key string, fetcher Fetcher[T]) {
	l, err := c.locker.TryAcquire(ctx, c.keysFor(key).lock, c.opts.stale)
	if errors.Is(err, lock.ErrLockNotAcquired) {
		return
	} else if err != nil {
		recordError(ctx, fmt.Errorf("error acquiring cache lock: %w", err))
		return
	}

	// The refresh outlives the request which triggered it, so it gets its own
	// root span linked to the caller's.
	refreshCtx, span := tracer.Start(context.WithoutCancel(ctx), "cache.miss",
		trace.WithNewRoot(),
		trace.WithLinks(trace.LinkFromContext(ctx)),
		trace.WithAttributes(c.spanAttributes(key)...),
		trace.WithAttributes(attribute.String("cache.miss", "soft")),
	)

	go func() {
		defer span.End()
		defer func() {
			if err := l.Release(refreshCtx); err != nil {
				recordError(refreshCtx, fmt.Errorf("error releasing refresh lock: %w", err))
			}
		}()
		_, _ = c.fill(refreshCtx, key, fetcher)
	}()
}

type keys struct {
	data     string
	fresh    string
	lock     string
	negative string
}

func (c *Cache[T]) keysFor(key string) keys {
	return keys{
		data:     fmt.Sprintf("%s:%s:data:%s", keyPrefix, c.name, key),
		fresh:    fmt.Sprintf("%s:%s:fresh:%s", keyPrefix, c.name, key),
		lock:     fmt.Sprintf("%s:%s:lock:%s", keyPrefix, c.name, key),
		negative: fmt.Sprintf("%s:%s:negative:%s", keyPrefix, c.name, key),
	}
}

func (c *Cache[T]) spanAttributes(key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("cache.name", c.name),
		attribute.String("cache.key", key),
	}
}

func recordError(ctx context.Context, err error) {
	trace.SpanFromContext(ctx).SetStatus(codes.Error, err.Error())
	sentry.CaptureException(err)
}
