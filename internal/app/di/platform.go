// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"crypto_backend/internal/app/config"
	klinesadapters "crypto_backend/internal/feature/klines/adapters"
	"crypto_backend/internal/platform/db"
	infrahttp "crypto_backend/internal/platform/http"
	healthhandler "crypto_backend/internal/platform/http/handler"
	infraredis "crypto_backend/internal/platform/redis"
	"crypto_backend/internal/shared/retry"
)

// RetryPolicy converts a configured policy into a retry.Policy.
// MaxInterval greater than Interval selects exponential backoff.
func RetryPolicy(p config.RetryPolicy) retry.Policy {
	if p.MaxInterval > p.Interval {
		return retry.Exponential(p.MaxAttempts, p.Interval, p.MaxInterval)
	}
	return retry.Constant(p.MaxAttempts, p.Interval)
}

// NewHTTPClient creates the outbound client shared by the upstream adapters.
func NewHTTPClient(cfg *config.Config) (*http.Client, error) {
	return infrahttp.NewHTTPClient(infrahttp.ClientConfig{
		Timeout:   cfg.HTTPClient.Timeout,
		ProxyURL:  cfg.HTTPClient.Proxy,
		UserAgent: cfg.HTTPClient.UserAgent,
	})
}

// OpenDB opens the snapshot database and migrates its tables when enabled.
func OpenDB(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	return db.Open(ctx, db.Config{
		Driver:      cfg.Database.Driver,
		DSN:         cfg.Database.DSN,
		AutoMigrate: cfg.Database.AutoMigrate,
		LogQueries:  cfg.Database.LogQueries,
	}, RetryPolicy(cfg.Retry.DB), klinesadapters.Models()...)
}

// OpenRedis connects to Redis. It returns nil when no address is configured.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	return infraredis.NewRedisClient(ctx, infraredis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// NewHealthHandler creates the liveness and readiness handler. Nil dependencies are not checked.
func NewHealthHandler(gdb *gorm.DB, rdb *redis.Client) *healthhandler.HealthHandler {
	checks := map[string]healthhandler.Check{}
	if gdb != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return healthhandler.NewHealthHandler(checks)
}
