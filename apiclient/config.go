package apiclient

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fintrack/go/tokenstore"
)

const (
	DefaultBaseURL           = "http://localhost:8000/api/v1"
	DefaultTimeout           = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultInitialRetryDelay = 1 * time.Second
	DefaultMaxRetryDelay     = 5 * time.Second
)

var ErrInvalidConfig = errors.New("apiclient: invalid config")

// Config holds the settings of a Client. The zero value of any field selects
// its default, so Config{} is valid and targets DefaultBaseURL.
type Config struct {
	// BaseURL is the root every request path is resolved against.
	BaseURL string

	// Timeout bounds a single attempt, including reading the response body. An
	// attempt that runs out of time is retried like any other network failure.
	Timeout time.Duration

	// MaxRetries is the number of re-issues allowed per retry key after the
	// initial attempt. Use NoRetries to disable retrying entirely.
	MaxRetries int

	// InitialRetryDelay and MaxRetryDelay shape the exponential backoff:
	// min(InitialRetryDelay * 2^n, MaxRetryDelay) before the (n+1)th retry.
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration

	// ExemptURLSubstrings lists URL fragments whose 401 responses purge the
	// credential but do not trigger the login redirect. Nil selects
	// DefaultExemptURLSubstrings; an empty non-nil slice exempts nothing.
	ExemptURLSubstrings []string

	// TokenKey is the token store key holding the bearer token.
	TokenKey string
}

// NoRetries can be assigned to Config.MaxRetries to turn retrying off.
const NoRetries = -1

// DefaultExemptURLSubstrings are the session-probing endpoints. A 401 from
// them means "not logged in", not "logged out mid-flow".
var DefaultExemptURLSubstrings = []string{"/users/me", "/user-preferences"}

func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	switch {
	case c.MaxRetries == 0:
		c.MaxRetries = DefaultMaxRetries
	case c.MaxRetries == NoRetries:
		c.MaxRetries = 0
	}
	if c.InitialRetryDelay == 0 {
		c.InitialRetryDelay = DefaultInitialRetryDelay
	}
	if c.MaxRetryDelay == 0 {
		c.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if c.ExemptURLSubstrings == nil {
		c.ExemptURLSubstrings = append([]string(nil), DefaultExemptURLSubstrings...)
	}
	if c.TokenKey == "" {
		c.TokenKey = tokenstore.DefaultTokenKey
	}
	return c
}

// Validate reports the first problem found in c after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base url: %w", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base url %q must be http or https", ErrInvalidConfig, c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base url %q has no host", ErrInvalidConfig, c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be positive (got %s)", ErrInvalidConfig, c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0 (got %d)", ErrInvalidConfig, c.MaxRetries)
	}
	if c.InitialRetryDelay < 0 || c.MaxRetryDelay < 0 {
		return fmt.Errorf("%w: retry delays must be positive", ErrInvalidConfig)
	}
	if c.MaxRetryDelay < c.InitialRetryDelay {
		return fmt.Errorf(
			"%w: max retry delay (%s) is below initial retry delay (%s)",
			ErrInvalidConfig, c.MaxRetryDelay, c.InitialRetryDelay,
		)
	}
	return nil
}
