package finance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/fintrack/go/apiclient"
	"github.com/fintrack/go/cache"
	"github.com/fintrack/go/logging"
)

type Category struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Picture string `json:"picture,omitempty"`
}

// Categories reads the category catalogue. With a cache configured, lookups go
// through Redis first.
type Categories struct {
	api  *apiclient.Client
	list *cache.Cache[[]Category]
	byID *cache.Cache[Category]
}

func (c *Categories) List(ctx context.Context) ([]Category, error) {
	return c.list.Get(ctx, "all", func(ctx context.Context, _ string) ([]Category, error) {
		var out []Category
		if err := c.api.GetJSON(ctx, "/categories", nil, &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = []Category{}
		}
		return out, nil
	})
}

// Get returns the category with id, or an error wrapping ErrNotFound.
func (c *Categories) Get(ctx context.Context, id string) (*Category, error) {
	category, err := c.byID.Get(ctx, id, c.fetch)
	if errors.Is(err, cache.ErrDoesNotExist) {
		return nil, fmt.Errorf("%w: category %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Categories) fetch(ctx context.Context, id string) (Category, error) {
	var out Category
	err := c.api.GetJSON(ctx, "/categories/"+url.PathEscape(id), nil, &out)
	if apiclient.StatusCode(err) == http.StatusNotFound {
		return out, cache.ErrDoesNotExist
	}
	return out, err
}

// Invalidate drops the cached catalogue and the cached entry for each id.
func (c *Categories) Invalidate(ctx context.Context, ids ...string) error {
	errs := []error{c.list.Invalidate(ctx, "all")}
	for _, id := range ids {
		errs = append(errs, c.byID.Invalidate(ctx, id))
	}
	if err := errors.Join(errs...); err != nil {
		logging.With(ctx, logger).Warn("failed to invalidate category cache", zap.Error(err))
		return err
	}
	return nil
}
