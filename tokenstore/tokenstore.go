// Package tokenstore holds the key-value stores the API gateway client reads
// bearer credentials from.
//
// Three backends are provided: Memory for tests and short-lived processes,
// SQLite for a credential that must survive restarts on a single device, and
// Redis for credentials shared between several processes.
package tokenstore

import (
	"context"
	"errors"

	"github.com/fintrack/go/http/bearer"
	"github.com/fintrack/go/logging"
)

// DefaultTokenKey is the key under which the access token is stored.
const DefaultTokenKey = "access_token"

var (
	logger = logging.New("tokenstore")

	// ErrNotFound is returned by Get when no value is stored under the key.
	ErrNotFound = errors.New("tokenstore: key not found")
)

// Store is a string key-value store. Every method may block and must honour
// ctx. Delete of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// TokenSource adapts the value stored under key to a bearer.TokenSource. A
// missing key yields an empty token.
func TokenSource(s Store, key string) bearer.TokenSource {
	return bearer.TokenSourceFunc(func(ctx context.Context) (string, error) {
		token, err := s.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return token, err
	})
}
