package bootstrap

import (
	"context"

	"github.com/vaayushanti/bagspec/common/config"
	"github.com/vaayushanti/bagspec/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipQueue     bool
	skipCache     bool
	skipRedis     bool
	skipTelemetry bool
	configFile    string
	customLogger  *logger.Logger
	customConfig  *config.Config
	dbInitHook    func(context.Context, *Components) error
}

// WithoutQueue skips queue initialization
func WithoutQueue() Option {
	return func(o *options) {
		o.skipQueue = true
	}
}

// WithoutCache skips cache initialization
func WithoutCache() Option {
	return func(o *options) {
		o.skipCache = true
	}
}

// WithoutRedis skips Redis even when REDIS_ENABLED is set
func WithoutRedis() Option {
	return func(o *options) {
		o.skipRedis = true
	}
}

// WithoutTelemetry skips telemetry initialization
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithConfigFile loads settings from an explicit YAML file
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithDBInitHook runs a custom function after DB initialization.
// The migrate command applies the schema through it.
func WithDBInitHook(hook func(context.Context, *Components) error) Option {
	return func(o *options) {
		o.dbInitHook = hook
	}
}

func defaultOptions() *options {
	return &options{}
}
