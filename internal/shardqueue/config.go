package shardqueue

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Config tunes a ShardExecutor. Zero values are replaced with defaults.
type Config struct {
	Shards         int           `envconfig:"SHARDS" default:"4"`
	QueueSize      int           `envconfig:"QUEUE_SIZE" default:"128"`
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT" default:"100ms"`

	// ErrorHandler receives job errors, recovered panics, and the context
	// error of jobs skipped because their context ended.
	ErrorHandler func(error) `ignored:"true"`

	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger `ignored:"true"`
}

// LoadConfig reads CORELIB_LOOP_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("CORELIB_LOOP", &cfg); err != nil {
		return Config{}, fmt.Errorf("shardqueue config: %w", err)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Shards <= 0 {
		c.Shards = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	if c.EnqueueTimeout <= 0 {
		c.EnqueueTimeout = 100 * time.Millisecond
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}
