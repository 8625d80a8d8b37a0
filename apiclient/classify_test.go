package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	testcases := []struct {
		Status   int
		Code     string
		Expected Class
	}{
		{Status: 200, Expected: Success},
		{Status: 204, Expected: Success},
		{Status: 401, Expected: AuthFailure},
		{Status: 500, Expected: RetryableFailure},
		{Status: 503, Expected: RetryableFailure},
		{Status: 400, Expected: FatalFailure},
		{Status: 403, Expected: FatalFailure},
		{Status: 404, Expected: FatalFailure},
		{Status: 429, Expected: FatalFailure},
		{Status: 302, Expected: FatalFailure},
		{Code: CodeTimeout, Expected: RetryableFailure},
		{Code: CodeNetwork, Expected: RetryableFailure},
		{Code: CodeCanceled, Expected: FatalFailure},
		{Code: CodeInvalidRequest, Expected: FatalFailure},
		{Status: 200, Code: CodeMalformed, Expected: FatalFailure},
	}

	for _, tc := range testcases {
		t.Run(fmt.Sprintf("%d %s", tc.Status, tc.Code), func(t *testing.T) {
			assert.Equal(t, tc.Expected, Classify(tc.Status, tc.Code))
		})
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestTransportCode(t *testing.T) {
	live := context.Background()
	done, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, CodeTimeout, transportCode(live, context.DeadlineExceeded))
	assert.Equal(t, CodeTimeout, transportCode(live, &url.Error{Op: "Get", URL: "x", Err: timeoutError{}}))
	assert.Equal(t, CodeNetwork, transportCode(live, errors.New("connection refused")))
	assert.Equal(t, CodeCanceled, transportCode(done, context.DeadlineExceeded))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Class: FatalFailure, Method: "GET", Path: "/accounts/9", StatusCode: 404}
	assert.Equal(t, "apiclient: GET /accounts/9: 404 Not Found", err.Error())

	err = &Error{Class: RetryableFailure, Method: "GET", Path: "/accounts", Code: CodeNetwork, Err: errors.New("dial tcp: refused")}
	assert.Equal(t, "apiclient: GET /accounts: network_unreachable: dial tcp: refused", err.Error())

	wrapped := fmt.Errorf("loading accounts: %w", err)
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsFatal(wrapped))
	assert.Zero(t, StatusCode(wrapped))
	assert.False(t, IsAuthFailure(errors.New("plain")))
}

func TestRetryKey(t *testing.T) {
	testcases := []struct {
		Request  Request
		Expected string
	}{
		{Request: Request{Path: "/transactions"}, Expected: "GET:/transactions"},
		{Request: Request{Method: "post", Path: "/transactions"}, Expected: "POST:/transactions"},
		{Request: Request{Path: "/transactions?limit=10&skip=0"}, Expected: "GET:/transactions"},
		{Request: Request{Path: "/transactions", Query: url.Values{"limit": {"5"}}}, Expected: "GET:/transactions"},
	}

	for _, tc := range testcases {
		assert.Equal(t, tc.Expected, tc.Request.RetryKey())
	}
}

func TestRequestURL(t *testing.T) {
	base, err := url.Parse("http://localhost:8000/api/v1")
	require.NoError(t, err)

	req := &Request{Path: "/transactions?limit=10", Query: url.Values{"date_to": {"2024-05-01"}}}
	u, err := req.url(base)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/transactions", u.Path)
	assert.Equal(t, "date_to=2024-05-01&limit=10", u.RawQuery)
}

func TestRequestURLKeepsEscapedSegments(t *testing.T) {
	base, err := url.Parse("http://localhost:8000/api/v1")
	require.NoError(t, err)

	req := &Request{Path: "/categories/" + url.PathEscape("food/drink")}
	u, err := req.url(base)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/v1/categories/food%2Fdrink", u.String())
}

func TestConfigValidate(t *testing.T) {
	testcases := []struct {
		Name  string
		Cfg   Config
		Valid bool
	}{
		{Name: "zero value", Cfg: Config{}, Valid: true},
		{Name: "https", Cfg: Config{BaseURL: "https://api.example.com/v1"}, Valid: true},
		{Name: "no retries", Cfg: Config{MaxRetries: NoRetries}, Valid: true},
		{Name: "bad scheme", Cfg: Config{BaseURL: "ftp://example.com"}},
		{Name: "no host", Cfg: Config{BaseURL: "http:///api"}},
		{Name: "negative timeout", Cfg: Config{Timeout: -time.Second}},
		{Name: "negative retries", Cfg: Config{MaxRetries: -2}},
		{Name: "inverted delays", Cfg: Config{InitialRetryDelay: 10 * time.Second, MaxRetryDelay: time.Second}},
	}

	for _, tc := range testcases {
		t.Run(tc.Name, func(t *testing.T) {
			err := tc.Cfg.Validate()
			if tc.Valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialRetryDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxRetryDelay)
	assert.Equal(t, []string{"/users/me", "/user-preferences"}, cfg.ExemptURLSubstrings)
	assert.Equal(t, "access_token", cfg.TokenKey)
}

func TestLedger(t *testing.T) {
	l := newLedger(2, time.Second, 5*time.Second)

	d, ok := l.schedule("GET:/a")
	assert.True(t, ok)
	assert.Equal(t, time.Second, d)

	d, ok = l.schedule("GET:/a")
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	n, present := l.count("GET:/a")
	assert.True(t, present)
	assert.Equal(t, 2, n)

	_, ok = l.schedule("GET:/a")
	assert.False(t, ok)
	_, present = l.count("GET:/a")
	assert.False(t, present)

	l.schedule("GET:/b")
	l.clear("GET:/b")
	l.clear("GET:/b")
	_, present = l.count("GET:/b")
	assert.False(t, present)
}
