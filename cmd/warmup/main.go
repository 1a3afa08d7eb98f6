package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"crypto_backend/internal/app/config"
	"crypto_backend/internal/app/di"
	"crypto_backend/internal/app/logging"
	"crypto_backend/internal/platform/scheduler"
)

func main() {
	once := flag.Bool("once", false, "run the warmup a single time and exit")
	flag.Parse()

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
	logging.Setup(os.Stdout, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := di.OpenDB(ctx, cfg)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	rdb, err := di.OpenRedis(ctx, cfg)
	if err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	client, err := di.NewHTTPClient(cfg)
	if err != nil {
		slog.Error("failed to create http client", "error", err)
		os.Exit(1)
	}

	job := di.NewWarmupJob(cfg, client, rdb, db)
	sched := scheduler.New(ctx)

	// 起動時に1回実行してスナップショットを用意する
	sched.RunNow("warmup", job.Run)
	if *once {
		return
	}

	if err := sched.Register("warmup", cfg.Warmup.Cron, job.Run); err != nil {
		slog.Error("failed to register warmup", "error", err)
		os.Exit(1)
	}
	sched.Start()

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping...")
	sched.Stop()
}
