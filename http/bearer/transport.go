// Package bearer attaches bearer credentials to outgoing HTTP requests.
//
// The token is read from a TokenSource on every round trip, so a request that
// is re-issued after a backoff picks up a token that was replaced in the
// meantime.
package bearer

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/fintrack/go/logging"
)

const (
	HeaderAuthorization = "Authorization"
	scheme              = "Bearer "
)

var logger = logging.New("bearer")

// TokenSource returns the current bearer token. An empty token with a nil
// error means no credential is stored.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Transport is an implementation of http.RoundTripper that sets the
// Authorization header from a TokenSource.
//
// A missing token, or a failure to read one, never fails the request: it is
// sent unauthenticated and the server's 401 is handled by the caller.
type Transport struct {
	http.RoundTripper
	Source TokenSource
}

func NewTransport(t http.RoundTripper, src TokenSource) *Transport {
	return &Transport{
		RoundTripper: t,
		Source:       src,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, err := t.Source.Token(ctx)
	if err != nil {
		if ctx.Err() != nil {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			return nil, ctx.Err()
		}
		logging.With(ctx, logger).Warn("failed to read bearer token: sending request unauthenticated", zap.Error(err))
		token = ""
	}

	if token == "" {
		return t.RoundTripper.RoundTrip(req)
	}

	// RoundTrip must not modify the original request.
	req = req.Clone(ctx)
	req.Header.Set(HeaderAuthorization, scheme+token)

	return t.RoundTripper.RoundTrip(req)
}
