// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"

	"crypto_backend/internal/app/config"
)

// Setup creates a logger from cfg, installs it as the slog default and returns it.
func Setup(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var h slog.Handler
	if cfg.Log.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
