package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// Option configures a single Load call.
type Option func(*env.Options)

// WithPrefix prepends prefix to every variable name.
func WithPrefix(prefix string) Option {
	return func(o *env.Options) { o.Prefix = prefix }
}

// WithEnvironment parses from the given map instead of the process environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) { o.Environment = vars }
}

// Load parses environment variables into v according to its env tags.
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() {
		// A missing .env is fine.
		_ = godotenv.Load()
	})

	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := env.ParseWithOptions(v, o); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad is Load that panics on failure.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
