// Package apiclient implements the gateway every fintrack component uses to
// reach the finance API.
//
// A Client attaches the stored bearer token to each request, retries transient
// failures with exponential backoff and invalidates the session when the API
// rejects the credential.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fintrack/go/http/bearer"
	"github.com/fintrack/go/httpclient"
	"github.com/fintrack/go/logging"
	"github.com/fintrack/go/telemetry"
	"github.com/fintrack/go/tokenstore"
	"github.com/fintrack/go/version"
)

const HeaderRequestID = "X-Request-ID"

var (
	logger = logging.New("apiclient")
	tracer = telemetry.Tracer("apiclient", "client")
	meter  = telemetry.Meter("apiclient", "client")
)

type Client struct {
	cfg     Config
	baseURL *url.URL
	store   tokenstore.Store

	http     *http.Client
	header   http.Header
	limiter  *rate.Limiter
	redirect func(ctx context.Context)
	sleep    func(ctx context.Context, d time.Duration) error

	ledger *ledger

	attempts      metric.Int64Counter
	retries       metric.Int64Counter
	invalidations metric.Int64Counter
}

// New returns a Client for cfg which reads and purges credentials in store.
func New(cfg Config, store tokenstore.Store, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: token store is required", ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %w", ErrInvalidConfig, err)
	}

	c := &Client{
		cfg:      cfg,
		baseURL:  baseURL,
		store:    store,
		header:   defaultHeader(),
		redirect: defaultRedirect,
		sleep:    sleep,
		ledger:   newLedger(cfg.MaxRetries, cfg.InitialRetryDelay, cfg.MaxRetryDelay),
	}
	for _, o := range opts {
		o.apply(c)
	}

	src := tokenstore.TokenSource(store, cfg.TokenKey)
	c.http = httpclient.Wrap(c.http, func(next http.RoundTripper) http.RoundTripper {
		return bearer.NewTransport(next, src)
	})

	if c.attempts, err = meter.Int64Counter(
		"apiclient.attempts",
		metric.WithDescription("Requests sent to the finance API, retries included"),
	); err != nil {
		return nil, err
	}
	if c.retries, err = meter.Int64Counter(
		"apiclient.retries",
		metric.WithDescription("Retries scheduled after a transient failure"),
	); err != nil {
		return nil, err
	}
	if c.invalidations, err = meter.Int64Counter(
		"apiclient.session.invalidations",
		metric.WithDescription("Credentials purged after a 401"),
	); err != nil {
		return nil, err
	}

	return c, nil
}

func defaultHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("User-Agent", version.UserAgent())
	return h
}

// Config returns the client's configuration with defaults applied.
func (c *Client) Config() Config {
	return c.cfg
}

// RetryCount returns the number of retries currently recorded for key, as
// returned by Request.RetryKey. It is 0 when no entry exists.
func (c *Client) RetryCount(key string) int {
	n, _ := c.ledger.count(key)
	return n
}

// Do sends req, retrying transient failures until the retry budget for its
// retry key runs out. Any outcome other than a 2xx response is returned as an
// *Error. Cancelling ctx stops the retry chain at the next suspension point.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	key := req.RetryKey()
	requestID := uuid.Must(uuid.NewV7()).String()

	ctx = logging.AddFields(ctx, zap.String("retry_key", key), zap.String("request_id", requestID))
	ctx, span := tracer.Start(ctx, key,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("apiclient.retry_key", key)),
	)
	defer span.End()

	log := logging.With(ctx, logger)
	keyAttr := metric.WithAttributes(attribute.String("retry_key", key))

	for attempt := 1; ; attempt++ {
		c.attempts.Add(ctx, 1, keyAttr)
		span.SetAttributes(attribute.Int("apiclient.attempts", attempt))

		resp, apiErr := c.send(ctx, req, requestID)
		if apiErr == nil {
			c.ledger.clear(key)
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			return resp, nil
		}

		switch apiErr.Class {
		case AuthFailure:
			c.invalidateSession(ctx, req)
		case RetryableFailure:
			delay, ok := c.ledger.schedule(key)
			if !ok {
				log.Warn("retries exhausted", zap.Int("attempts", attempt), zap.Error(apiErr))
				break
			}

			c.retries.Add(ctx, 1, keyAttr)
			log.Warn("request failed: retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(apiErr),
			)

			if err := c.sleep(ctx, delay); err != nil {
				apiErr = c.newError(req, 0, CodeCanceled, nil, err)
				c.ledger.clear(key)
				break
			}
			continue
		case FatalFailure:
			if apiErr.Code == CodeCanceled {
				c.ledger.clear(key)
			}
		}

		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Class.String())
		return nil, apiErr
	}
}

// send makes a single attempt. The returned *Error is nil only for a 2xx
// response.
func (c *Client) send(ctx context.Context, req *Request, requestID string) (*Response, *Error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			// Wait also fails when the deadline of ctx would pass first.
			return nil, c.newError(req, 0, CodeCanceled, nil, err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := c.newHTTPRequest(attemptCtx, req, requestID)
	if err != nil {
		return nil, c.newError(req, 0, CodeInvalidRequest, nil, err)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.newError(req, 0, transportCode(ctx, err), nil, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.newError(req, 0, transportCode(ctx, err), nil, err)
	}

	if Classify(httpResp.StatusCode, "") != Success {
		return nil, c.newError(req, httpResp.StatusCode, "", body, nil)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req *Request, requestID string) (*http.Request, error) {
	u, err := req.url(c.baseURL)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), u.String(), body)
	if err != nil {
		return nil, err
	}

	for k, vs := range c.header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range req.Header {
		httpReq.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	httpReq.Header.Set(HeaderRequestID, requestID)

	return httpReq, nil
}

func (c *Client) newError(req *Request, status int, code string, body []byte, err error) *Error {
	return &Error{
		Class:      Classify(status, code),
		Method:     req.method(),
		Path:       req.path(),
		StatusCode: status,
		Code:       code,
		Body:       body,
		Err:        err,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
