package bootstrap

import (
	"context"
	"fmt"

	"github.com/vaayushanti/bagspec/common/cache"
	"github.com/vaayushanti/bagspec/common/config"
	"github.com/vaayushanti/bagspec/common/db"
	"github.com/vaayushanti/bagspec/common/logger"
	"github.com/vaayushanti/bagspec/common/queue"
	rediscommon "github.com/vaayushanti/bagspec/common/redis"
	"github.com/vaayushanti/bagspec/common/telemetry"
)

// Setup initializes all service components
// This is the main entry point for all commands
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName, options.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
	)

	// 3. Initialize database
	if err := setupDatabase(ctx, components); err != nil {
		components.Shutdown(ctx)
		return nil, err
	}

	if options.dbInitHook != nil {
		components.Logger.Info("running database init hook")
		if err := options.dbInitHook(ctx, components); err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("database init hook failed: %w", err)
		}
	}

	// 4. Initialize Redis (optional)
	if !options.skipRedis && cfg.Redis.Enabled {
		components.Redis, err = rediscommon.Dial(ctx, rediscommon.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, components.Logger)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	// 5. Initialize queue (if not skipped)
	if !options.skipQueue {
		components.Logger.Info("initializing queue", "type", cfg.Queue.Type)

		switch cfg.Queue.Type {
		case "memory":
			components.Queue = queue.NewMemoryQueue(cfg.Queue.BufferSize, components.Logger)
		default:
			components.Shutdown(ctx)
			return nil, fmt.Errorf("unknown queue type: %s", cfg.Queue.Type)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing queue")
			return components.Queue.Close()
		})
	}

	// 6. Initialize cache (if not skipped)
	if !options.skipCache && cfg.Cache.Enabled {
		if components.Redis != nil {
			components.Logger.Info("initializing cache", "type", "redis")
			components.Cache = cache.NewRedisCache(components.Redis, serviceName)
		} else {
			components.Logger.Info("initializing cache", "type", "memory")
			components.Cache = cache.NewMemoryCache(components.Logger)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing cache")
			return components.Cache.Close()
		})
	}

	// 7. Initialize telemetry (if not skipped)
	if !options.skipTelemetry && cfg.Telemetry.EnablePprof {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(cfg.Telemetry.PprofPort, components.Logger)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		} else {
			components.addCleanup(func() error {
				return components.Telemetry.Stop(context.Background())
			})
		}
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db_driver", cfg.Database.Driver,
		"redis", components.Redis != nil,
		"queue", components.Queue != nil,
		"cache", components.Cache != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

func setupDatabase(ctx context.Context, components *Components) error {
	cfg := components.Config
	components.Logger.Info("connecting to database", "driver", cfg.Database.Driver)

	switch cfg.Database.Driver {
	case "postgres":
		pg, err := db.New(ctx, cfg, components.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		components.DB = pg
		components.addCleanup(func() error {
			components.DB.Close()
			return nil
		})
	case "sqlite":
		lite, err := db.OpenSQLite(ctx, cfg.Database.SQLitePath, components.Logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		components.SQLite = lite
		components.addCleanup(components.SQLite.Close)
	default:
		return fmt.Errorf("unknown database driver: %s", cfg.Database.Driver)
	}

	return nil
}
