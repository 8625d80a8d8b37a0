// Command fintrack is a command line client for the finance API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fintrack/go/apiclient"
	"github.com/fintrack/go/config"
	ferrors "github.com/fintrack/go/errors"
	"github.com/fintrack/go/finance"
	"github.com/fintrack/go/kv"
	"github.com/fintrack/go/logging"
	"github.com/fintrack/go/telemetry"
	"github.com/fintrack/go/tokenstore"
)

const shutdownTimeout = 5 * time.Second

var logger = logging.New("fintrack")

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("FINTRACK_CONFIG"), "path to a YAML config file")
	flag.Usage = func() { usage(flag.CommandLine.Output()) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, *configPath, flag.Args(), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, configPath string, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "fintrack: %v\n", err)
		return 1
	}

	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		logger.Warn("ignoring invalid log level", zap.String("level", cfg.Log.Level), zap.Error(err))
	}

	ferrors.Init(cfg.Sentry.DSN)
	defer ferrors.Flush()

	if err := telemetry.Init(ctx); err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := telemetry.Shutdown(ctx); err != nil {
			logger.Warn("failed to flush telemetry", zap.Error(err))
		}
	}()

	a, err := newApp(ctx, cfg, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "fintrack: %v\n", err)
		ferrors.Report(err)
		return 1
	}
	defer a.Close()

	return a.dispatch(ctx, args)
}

// app holds everything a subcommand needs.
type app struct {
	cfg     *config.Config
	store   tokenstore.Store
	api     *apiclient.Client
	fin     *finance.Client
	out     io.Writer
	errOut  io.Writer
	closers []io.Closer

	redirected bool
}

func newApp(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (*app, error) {
	a := &app{cfg: cfg, out: stdout, errOut: stderr}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	opts := []apiclient.Option{apiclient.WithLoginRedirect(a.loginRequired)}
	if l := cfg.Limiter(); l != nil {
		opts = append(opts, apiclient.WithRateLimiter(l))
	}
	a.api, err = apiclient.New(cfg.Client(), store, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	var finOpts []finance.Option
	if url := cfg.CacheRedisURL(); url != "" {
		rdb, err := kv.New(ctx, "cache", url, kv.WithAutoTLS(cfg.Store.RedisCAFile))
		if err != nil {
			logger.Warn("category cache disabled", zap.Error(err))
		} else {
			a.closers = append(a.closers, rdb)
			finOpts = append(finOpts, finance.WithCategoryCache(rdb, cfg.Cache.Fresh, cfg.Cache.Stale))
		}
	}
	a.fin = finance.New(a.api, store, finOpts...)
	if err := a.fin.Prepare(ctx); err != nil {
		logger.Warn("failed to load category cache scripts", zap.Error(err))
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) (tokenstore.Store, error) {
	s := a.cfg.Store
	switch s.Backend {
	case config.BackendSQLite:
		db, err := tokenstore.OpenSQLite(ctx, s.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		return db, nil
	case config.BackendRedis:
		rdb, err := kv.New(ctx, "tokens", s.RedisURL, kv.WithAutoTLS(s.RedisCAFile))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb)
		return tokenstore.NewRedis(rdb, tokenstore.WithPrefix(s.Prefix), tokenstore.WithTTL(s.TTL)), nil
	case config.BackendMemory:
		return tokenstore.NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, s.Backend)
}

func (a *app) loginRequired(context.Context) {
	a.redirected = true
	fmt.Fprintln(a.errOut, "session expired, run `fintrack login`")
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}

// dispatch runs the subcommand named by args[0] and returns the exit code.
func (a *app) dispatch(ctx context.Context, args []string) int {
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.errOut, "fintrack: unknown command %q\n", args[0])
		usage(a.errOut)
		return 2
	}

	err := cmd.run(ctx, a, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.As(err, new(usageError)):
		return 2
	case errors.Is(err, finance.ErrNotAuthenticated), apiclient.IsAuthFailure(err):
		if !a.redirected {
			fmt.Fprintln(a.errOut, "not logged in, run `fintrack login`")
		}
		return 1
	case errors.Is(err, context.Canceled):
		return 1
	}

	fmt.Fprintf(a.errOut, "fintrack: %v\n", err)
	if !apiclient.IsFatal(err) || apiclient.StatusCode(err) >= 500 {
		ferrors.Report(err)
	}
	return 1
}
