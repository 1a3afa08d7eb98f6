package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto_backend/internal/app/config"
	"crypto_backend/internal/app/di"
	"crypto_backend/internal/app/logging"
	"crypto_backend/internal/app/router"
	klineshandler "crypto_backend/internal/feature/klines/transport/handler"
	marketshandler "crypto_backend/internal/feature/markets/transport/handler"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn(".env could not be loaded; using system environment variables", "error", err)
	}
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(os.Stdout, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := di.OpenDB(ctx, cfg)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	// Redis
	rdb, err := di.OpenRedis(ctx, cfg)
	if err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	client, err := di.NewHTTPClient(cfg)
	if err != nil {
		slog.Error("failed to create http client", "error", err)
		os.Exit(1)
	}

	// Usecase
	chartUC := di.NewChartUsecase(cfg, client, rdb, db)
	marketsUC := di.NewMarketsUsecase(cfg, client)

	// Handler
	chartH := klineshandler.NewChartHandler(chartUC)
	marketsH := marketshandler.NewMarketsHandler(marketsUC)
	healthH := di.NewHealthHandler(db, rdb)

	// ルータ生成
	r := router.NewRouter(router.Options{Logger: logger, AllowedOrigins: cfg.Server.AllowedOrigins}, healthH, chartH, marketsH)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	slog.Info("server stopped")
}
