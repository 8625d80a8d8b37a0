package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type headerTransport struct {
	next http.RoundTripper
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-Wrapped", "yes")
	return t.next.RoundTrip(req)
}

func TestWrap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yes", r.Header.Get("X-Wrapped"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	base := DefaultClient()
	c := Wrap(base, func(next http.RoundTripper) http.RoundTripper {
		return headerTransport{next: next}
	})

	assert.NotSame(t, base, c)

	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestWrapNilClient(t *testing.T) {
	c := Wrap(nil, func(next http.RoundTripper) http.RoundTripper { return next })
	assert.NotNil(t, c.Transport)
}
