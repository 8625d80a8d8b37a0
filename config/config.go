// Package config loads fintrack settings from defaults, an optional YAML file
// and FINTRACK_* environment variables, in increasing order of priority.
//
// Environment variable names map onto keys by dropping the prefix, lower
// casing and turning underscores into dots: FINTRACK_API_BASEURL sets
// api.baseurl.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/time/rate"

	"github.com/fintrack/go/apiclient"
)

const EnvPrefix = "FINTRACK_"

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	API    APIConfig    `koanf:"api"`
	Store  StoreConfig  `koanf:"store"`
	Cache  CacheConfig  `koanf:"cache"`
	Log    LogConfig    `koanf:"log"`
	Sentry SentryConfig `koanf:"sentry"`
}

type APIConfig struct {
	BaseURL           string        `koanf:"baseurl"`
	Timeout           time.Duration `koanf:"timeout"`
	MaxRetries        int           `koanf:"maxretries"`
	InitialRetryDelay time.Duration `koanf:"initialretrydelay"`
	MaxRetryDelay     time.Duration `koanf:"maxretrydelay"`
	ExemptURLs        []string      `koanf:"exempturls"`

	// RateLimit is the number of attempts per second the client may make. Zero
	// disables throttling.
	RateLimit float64 `koanf:"ratelimit"`
	RateBurst int     `koanf:"rateburst"`
}

type StoreConfig struct {
	Backend  string `koanf:"backend"`
	TokenKey string `koanf:"tokenkey"`

	// Path is the SQLite database file.
	Path string `koanf:"path"`

	RedisURL    string        `koanf:"redisurl"`
	RedisCAFile string        `koanf:"redisca"`
	Prefix      string        `koanf:"prefix"`
	TTL         time.Duration `koanf:"ttl"`
}

// CacheConfig controls the Redis cache in front of slowly changing API
// resources. It is only used when a Redis URL is available.
type CacheConfig struct {
	Enabled  bool          `koanf:"enabled"`
	RedisURL string        `koanf:"redisurl"`
	Fresh    time.Duration `koanf:"fresh"`
	Stale    time.Duration `koanf:"stale"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type SentryConfig struct {
	DSN string `koanf:"dsn"`
}

// Load reads the configuration. path names an optional YAML file; it is an
// error for a named file not to exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(envprovider.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(name, value string) (string, any) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "_", ".")
	if key == "api.exempturls" {
		return key, splitList(value)
	}
	return key, value
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaults() map[string]any {
	return map[string]any{
		"api.baseurl":           apiclient.DefaultBaseURL,
		"api.timeout":           apiclient.DefaultTimeout.String(),
		"api.maxretries":        apiclient.DefaultMaxRetries,
		"api.initialretrydelay": apiclient.DefaultInitialRetryDelay.String(),
		"api.maxretrydelay":     apiclient.DefaultMaxRetryDelay.String(),
		"api.exempturls":        slices.Clone(apiclient.DefaultExemptURLSubstrings),
		"api.ratelimit":         0,
		"api.rateburst":         1,

		"store.backend":  BackendSQLite,
		"store.tokenkey": "access_token",
		"store.path":     defaultStorePath(),
		"store.prefix":   "fintrack:tokens:",
		"store.ttl":      "0s",

		"cache.enabled": true,
		"cache.fresh":   "5m",
		"cache.stale":   "1h",

		"log.level": "info",
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "fintrack", "tokens.db")
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is required for the sqlite backend", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("%w: store.redisurl is required for the redis backend", ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.API.RateLimit < 0 {
		return fmt.Errorf("%w: api.ratelimit must be >= 0", ErrInvalidConfig)
	}
	if c.Cache.Stale < c.Cache.Fresh {
		return fmt.Errorf("%w: cache.stale must not be shorter than cache.fresh", ErrInvalidConfig)
	}

	if err := c.Client().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Client returns the settings of the API gateway client.
func (c *Config) Client() apiclient.Config {
	cfg := apiclient.Config{
		BaseURL:             c.API.BaseURL,
		Timeout:             c.API.Timeout,
		MaxRetries:          c.API.MaxRetries,
		InitialRetryDelay:   c.API.InitialRetryDelay,
		MaxRetryDelay:       c.API.MaxRetryDelay,
		ExemptURLSubstrings: c.API.ExemptURLs,
		TokenKey:            c.Store.TokenKey,
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = apiclient.NoRetries
	}
	if cfg.ExemptURLSubstrings == nil {
		cfg.ExemptURLSubstrings = []string{}
	}
	return cfg
}

// Limiter returns the client-side rate limiter, or nil if throttling is off.
func (c *Config) Limiter() *rate.Limiter {
	if c.API.RateLimit <= 0 {
		return nil
	}
	burst := max(c.API.RateBurst, 1)
	return rate.NewLimiter(rate.Limit(c.API.RateLimit), burst)
}

// CacheRedisURL returns the Redis URL for the cache, falling back to the token
// store's. It is empty when caching is disabled or no Redis is configured.
func (c *Config) CacheRedisURL() string {
	if !c.Cache.Enabled {
		return ""
	}
	if c.Cache.RedisURL != "" {
		return c.Cache.RedisURL
	}
	return c.Store.RedisURL
}
