package bootstrap

import (
	"context"
	"fmt"

	"github.com/aziwar/dr-islam-gallery/common/cache"
	"github.com/aziwar/dr-islam-gallery/common/config"
	"github.com/aziwar/dr-islam-gallery/common/db"
	"github.com/aziwar/dr-islam-gallery/common/logger"
	"github.com/redis/go-redis/v9"
)

// Setup initializes all service components
// This is the main entry point for the gallery service
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
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
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize database for the audit trail (if not skipped)
	if !options.skipDB && components.Config.Database.Enabled {
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, components.Config, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing database connection")
			components.DB.Close()
			return nil
		})
	}

	// 4. Initialize Redis (case store, blobs, rate limit counters, CSRF tokens)
	components.Logger.Info("connecting to redis", "addr", components.Config.RedisAddr())
	components.Redis = redis.NewClient(&redis.Options{
		Addr:     components.Config.RedisAddr(),
		Password: components.Config.Redis.Password,
		DB:       components.Config.Redis.DB,
	})

	if err := components.Redis.Ping(ctx).Err(); err != nil {
		components.Shutdown(ctx)
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	components.addCleanup(func() error {
		components.Logger.Info("closing redis connection")
		return components.Redis.Close()
	})

	// 5. Initialize cache (if not skipped)
	if !options.skipCache && components.Config.Cache.Enabled {
		components.Logger.Info("initializing cache")
		components.Cache = cache.NewMemoryCache(components.Logger)

		components.addCleanup(func() error {
			components.Logger.Info("closing cache")
			return components.Cache.Close()
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"cache", components.Cache != nil,
	)

	return components, nil
}
