package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/skymfe/corelib/httpclient"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the dev console configuration.
// Environment variables are parsed from the CORELIB_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// Base endpoint the shared client handle is bound to
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8787"`

	// HTTP client handle
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	MaxRetries  int           `envconfig:"MAX_RETRIES" default:"2"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"30s"`
	Debug       bool          `envconfig:"DEBUG" default:"false"`

	// Session token used by the auth accessor and the bearer transport
	Token string `envconfig:"TOKEN" default:""`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Dev backend listen address
	DevServerAddr string `envconfig:"DEV_SERVER_ADDR" default:":8787"`
}

// ResolveDefaults validates the parsed values.
func (c *Config) ResolveDefaults() error {
	switch c.Environment {
	case EnvDevelopment, EnvTesting, EnvProduction:
	case "":
		c.Environment = EnvDevelopment
	default:
		return fmt.Errorf("unsupported ENVIRONMENT: %s", c.Environment)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid BASE_URL: %q", c.BaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0")
	}
	if c.Debug && c.Environment == EnvProduction {
		return fmt.Errorf("DEBUG cannot be enabled in production")
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Example: CORELIB_BASE_URL, CORELIB_HTTP_TIMEOUT
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CORELIB", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("base_url", cfg.BaseURL).
		Dur("http_timeout", cfg.HTTPTimeout).
		Int("max_retries", cfg.MaxRetries).
		Dur("cache_ttl", cfg.CacheTTL).
		Bool("debug", cfg.Debug).
		Bool("token_present", cfg.Token != "").
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:   EnvTesting,
		BaseURL:       "http://localhost:8787",
		HTTPTimeout:   5 * time.Second,
		MaxRetries:    0,
		CacheTTL:      0,
		LogLevel:      "debug",
		DevServerAddr: "127.0.0.1:0",
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// ClientOptions translates the config into httpclient options.
func (c *Config) ClientOptions() []httpclient.Option {
	opts := []httpclient.Option{
		httpclient.WithHTTPTimeout(c.HTTPTimeout),
		httpclient.WithMaxRetries(c.MaxRetries),
		httpclient.WithDebugLogging(c.Debug),
	}
	if c.CacheTTL > 0 {
		opts = append(opts, httpclient.WithDefaultCacheTTL(c.CacheTTL))
	}
	return opts
}
