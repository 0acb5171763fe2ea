package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Option customises how environment variables are mapped onto a struct.
type Option func(*env.Options)

// WithPrefix makes every `env` tag resolve as prefix+tag, so GIFT_HTTP_PORT
// feeds a field tagged `env:"HTTP_PORT"` when the prefix is "GIFT_".
func WithPrefix(prefix string) Option {
	return func(o *env.Options) { o.Prefix = prefix }
}

// WithEnvironment parses from the given map instead of the process
// environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) { o.Environment = vars }
}

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings:
//
//	type Config struct {
//	    Port     int    `env:"HTTP_PORT" envDefault:"8080"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any, opts ...Option) error {
	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := env.ParseWithOptions(cfg, o); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
