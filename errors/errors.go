// Package errors initializes error reporting to Sentry.
package errors

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/fintrack/go/logging"
	"github.com/fintrack/go/version"
)

const flushTimeout = 2 * time.Second

var logger = logging.New("errors")

// Init configures the Sentry client. An empty dsn falls back to SENTRY_DSN; if
// both are empty reporting stays disabled and Init returns false.
func Init(dsn string) bool {
	if dsn == "" {
		dsn = os.Getenv("SENTRY_DSN")
	}
	if dsn == "" {
		logger.Debug("SENTRY_DSN not set: skipping Sentry initialization")
		return false
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		AttachStacktrace: true,
		Release:          version.Version(),
	})
	if err != nil {
		logger.Sugar().Warnf("Failed to initialize Sentry client: %v", err)
		return false
	}

	logger.Info("Initialized Sentry")
	return true
}

// Report sends err to Sentry if it has been initialized.
func Report(err error) {
	if err == nil || sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.CaptureException(err)
}

// Flush waits for buffered events to be delivered. Call it before exiting.
func Flush() {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.Flush(flushTimeout)
}
