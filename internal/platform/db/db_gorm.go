// Package db opens the gorm connection used by the snapshot store.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crypto_backend/internal/shared/retry"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds database connection settings.
type Config struct {
	Driver      string // "sqlite" or "postgres"
	DSN         string // file path for sqlite, connection string for postgres
	AutoMigrate bool
	LogQueries  bool
}

// Opener opens a gorm connection for a DSN. Replaced in tests.
type Opener func(dsn string) (*gorm.DB, error)

// OpenerFor returns the gorm opener of a driver.
func OpenerFor(driver string, gcfg *gorm.Config) (Opener, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "":
		return func(dsn string) (*gorm.DB, error) { return gorm.Open(sqlite.Open(dsn), gcfg) }, nil
	case DriverPostgres:
		return func(dsn string) (*gorm.DB, error) { return gorm.Open(postgres.Open(dsn), gcfg) }, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects with the configured driver, retrying with policy, and runs migrations for models
// when AutoMigrate is set.
func Open(ctx context.Context, cfg Config, policy retry.Policy, models ...any) (*gorm.DB, error) {
	gcfg := &gorm.Config{}
	if !cfg.LogQueries {
		gcfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	opener, err := OpenerFor(cfg.Driver, gcfg)
	if err != nil {
		return nil, err
	}

	db, err := ConnectWithRetry(ctx, cfg.DSN, policy, opener)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate && len(models) > 0 {
		if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	slog.Info("database connected", "driver", cfg.Driver, "auto_migrate", cfg.AutoMigrate)
	return db, nil
}

// ConnectWithRetry opens the database, pinging it after every open, until policy gives up.
func ConnectWithRetry(ctx context.Context, dsn string, policy retry.Policy, open Opener) (*gorm.DB, error) {
	var db *gorm.DB
	err := policy.Do(ctx, "db connect", func(ctx context.Context) error {
		conn, err := open(dsn)
		if err != nil {
			return err
		}
		if sqlDB, err := conn.DB(); err == nil {
			if err := sqlDB.PingContext(ctx); err != nil {
				_ = sqlDB.Close()
				return err
			}
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	return db, nil
}
