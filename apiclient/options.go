package apiclient

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type Option interface {
	apply(*Client)
}

type optionFunc func(*Client)

func (fn optionFunc) apply(c *Client) {
	fn(c)
}

// WithHTTPClient sets the client used to send requests. Its transport is
// wrapped to attach the bearer credential; c itself is not modified.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *Client) {
		c.http = hc
	})
}

// WithLoginRedirect installs the hook called when a request to a non-exempt
// endpoint is rejected with 401. The stored credential has already been
// deleted when fn runs.
func WithLoginRedirect(fn func(ctx context.Context)) Option {
	return optionFunc(func(c *Client) {
		if fn != nil {
			c.redirect = fn
		}
	})
}

// WithRateLimiter makes every attempt, retries included, wait for l.
func WithRateLimiter(l *rate.Limiter) Option {
	return optionFunc(func(c *Client) {
		c.limiter = l
	})
}

// WithHeader adds a header sent with every request. Headers set on a Request
// take precedence.
func WithHeader(key, value string) Option {
	return optionFunc(func(c *Client) {
		c.header.Set(key, value)
	})
}

func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return optionFunc(func(c *Client) {
		c.sleep = fn
	})
}
