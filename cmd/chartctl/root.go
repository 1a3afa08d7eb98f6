package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"crypto_backend/internal/app/config"
	"crypto_backend/internal/app/logging"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "chartctl",
	Short:         "Inspect price charts and market data from the command line",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
}

// loadConfig loads and validates the config. Logs go to stderr so stdout stays valid JSON.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var w io.Writer = io.Discard
	if verbose {
		w = os.Stderr
	}
	logging.Setup(w, cfg)
	slog.Debug("config loaded", "path", configPath)
	return cfg, nil
}
