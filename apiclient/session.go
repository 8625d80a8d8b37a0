package apiclient

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fintrack/go/logging"
)

// PurgeCredential deletes the stored bearer token.
func (c *Client) PurgeCredential(ctx context.Context) error {
	return c.store.Delete(ctx, c.cfg.TokenKey)
}

// RedirectToLogin invokes the hook installed with WithLoginRedirect.
func (c *Client) RedirectToLogin(ctx context.Context) {
	c.redirect(ctx)
}

func (c *Client) isExempt(path string) bool {
	for _, s := range c.cfg.ExemptURLSubstrings {
		if s != "" && strings.Contains(path, s) {
			return true
		}
	}
	return false
}

// invalidateSession runs after a 401. The credential is purged even when the
// caller has already given up on the request.
func (c *Client) invalidateSession(ctx context.Context, req *Request) {
	log := logging.With(ctx, logger)
	exempt := c.isExempt(req.path())

	c.invalidations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("exempt", exempt)))

	if err := c.PurgeCredential(context.WithoutCancel(ctx)); err != nil {
		log.Error("failed to purge credential", zap.Error(err))
	}

	if exempt {
		log.Info("credential rejected by session probe: not redirecting to login")
		return
	}

	log.Info("credential rejected: redirecting to login")
	c.RedirectToLogin(ctx)
}

func defaultRedirect(ctx context.Context) {
	logging.With(ctx, logger).Info("login required but no login redirect is configured")
}
