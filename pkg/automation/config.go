package automation

import (
	"net/http"
	"time"
)

// Config is read from APPS_SCRIPT_* environment variables.
// A zero Timeout leaves the call bounded only by the request context.
type Config struct {
	URL         string        `env:"APPS_SCRIPT_URL"`
	MaxBodySize int64         `env:"APPS_SCRIPT_MAX_BODY_SIZE" envDefault:"10485760"`
	Timeout     time.Duration `env:"APPS_SCRIPT_TIMEOUT" envDefault:"0s"`
}

// NewFromConfig creates a Client from cfg. Only non-zero values are applied.
func NewFromConfig(cfg Config, opts ...Option) *Client {
	configOpts := make([]Option, 0, 2+len(opts))
	if cfg.MaxBodySize > 0 {
		configOpts = append(configOpts, WithMaxBodySize(cfg.MaxBodySize))
	}
	if cfg.Timeout > 0 {
		configOpts = append(configOpts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return New(cfg.URL, append(configOpts, opts...)...)
}
