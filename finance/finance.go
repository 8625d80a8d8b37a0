// Package finance exposes typed access to the finance API resources through an
// apiclient.Client.
package finance

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fintrack/go/apiclient"
	"github.com/fintrack/go/cache"
	"github.com/fintrack/go/logging"
	"github.com/fintrack/go/tokenstore"
)

// DateLayout is the date format the API accepts in query parameters.
const DateLayout = time.DateOnly

// DefaultLimit is the page size used when a caller does not choose one.
const DefaultLimit = 10

// bulkLimit is the page size used where every item of a range is wanted.
const bulkLimit = 200

var (
	logger = logging.New("finance")

	ErrNotFound         = errors.New("finance: not found")
	ErrNotAuthenticated = errors.New("finance: no access token stored")
)

type Client struct {
	Accounts     *Accounts
	Transactions *Transactions
	Categories   *Categories
	Stats        *Stats
	Users        *Users
	Auth         *Auth
}

type Option interface {
	apply(*options)
}

type options struct {
	cacheClient redis.Cmdable
	fresh       time.Duration
	stale       time.Duration
	now         func() time.Time
}

type optionFunc func(*options)

func (fn optionFunc) apply(opts *options) {
	fn(opts)
}

// WithCategoryCache caches category lookups in Redis. Categories change rarely,
// so they are served stale while being refreshed.
func WithCategoryCache(client redis.Cmdable, fresh, stale time.Duration) Option {
	return optionFunc(func(opts *options) {
		opts.cacheClient = client
		opts.fresh = fresh
		opts.stale = stale
	})
}

// WithClock overrides the source of "today" for the date-relative queries.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(opts *options) {
		opts.now = now
	})
}

// New returns a Client for api. store must be the token store api was built
// with.
func New(api *apiclient.Client, store tokenstore.Store, opts ...Option) *Client {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt.apply(&o)
	}

	categories := &Categories{api: api}
	if o.cacheClient != nil {
		categories.list = cache.New[[]Category](o.cacheClient, "categories", o.fresh, o.stale)
		categories.byID = cache.New[Category](o.cacheClient, "category", o.fresh, o.stale,
			cache.WithNegativeCaching(o.fresh),
		)
	}

	return &Client{
		Accounts:     &Accounts{api: api},
		Transactions: &Transactions{api: api, now: o.now},
		Categories:   categories,
		Stats:        &Stats{api: api},
		Users:        &Users{api: api},
		Auth:         &Auth{api: api, store: store},
	}
}

// Prepare loads the Redis scripts used by the category cache, so the first
// refresh does not have to send them. It does nothing without a cache.
func (c *Client) Prepare(ctx context.Context) error {
	return errors.Join(c.Categories.list.Prepare(ctx), c.Categories.byID.Prepare(ctx))
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func setString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int) {
	if value > 0 {
		q.Set(key, strconv.Itoa(value))
	}
}

func setDate(q url.Values, key string, t time.Time) {
	if !t.IsZero() {
		q.Set(key, FormatDate(t))
	}
}

func setFloat(q url.Values, key string, f *float64) {
	if f != nil {
		q.Set(key, strconv.FormatFloat(*f, 'f', -1, 64))
	}
}

func dateRange(from, to time.Time) url.Values {
	q := url.Values{}
	setDate(q, "date_from", from)
	setDate(q, "date_to", to)
	return q
}
