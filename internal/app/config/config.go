// Package config loads application configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"crypto_backend/internal/feature/klines/domain/entity"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`  // debug, info, warn, error
		Format string `yaml:"format"` // json or text
	} `yaml:"log"`
	HTTPClient struct {
		Timeout   time.Duration `yaml:"timeout"`
		Proxy     string        `yaml:"proxy"`
		UserAgent string        `yaml:"user_agent"`
	} `yaml:"http_client"`
	Binance struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"binance"`
	CoinGecko struct {
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		VsCurrency string `yaml:"vs_currency"`
		PerPage    int    `yaml:"per_page"`
	} `yaml:"coingecko"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"redis"`
	Database struct {
		Driver      string `yaml:"driver"`
		DSN         string `yaml:"dsn"`
		AutoMigrate bool   `yaml:"auto_migrate"`
		LogQueries  bool   `yaml:"log_queries"`
	} `yaml:"database"`
	Chart struct {
		MaxPointsPerRequest     int           `yaml:"max_points_per_request"`
		QuoteCurrency           string        `yaml:"quote_currency"`
		StablecoinReferencePair string        `yaml:"stablecoin_reference_pair"`
		RateLimit               int           `yaml:"rate_limit"`
		RateInterval            time.Duration `yaml:"rate_interval"`
	} `yaml:"chart"`
	Warmup struct {
		Cron    string   `yaml:"cron"`
		Symbols []string `yaml:"symbols"`
		Windows []string `yaml:"windows"`
	} `yaml:"warmup"`
	Retry struct {
		List   RetryPolicy `yaml:"list"`
		Search RetryPolicy `yaml:"search"`
		DB     RetryPolicy `yaml:"db"`
	} `yaml:"retry"`
}

// RetryPolicy configures one retry.Policy.
type RetryPolicy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Interval    time.Duration `yaml:"interval"`
	MaxInterval time.Duration `yaml:"max_interval"` // exponential when greater than Interval
}

// LoadDotEnv loads a .env file into the process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	slog.Debug("loaded env file", "path", path)
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Server.Port)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("HTTPS_PROXY", &cfg.HTTPClient.Proxy)
	str("BINANCE_BASE_URL", &cfg.Binance.BaseURL)
	str("COINGECKO_BASE_URL", &cfg.CoinGecko.BaseURL)
	str("COINGECKO_API_KEY", &cfg.CoinGecko.APIKey)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("DB_DRIVER", &cfg.Database.Driver)
	str("DB_DSN", &cfg.Database.DSN)
	str("WARMUP_CRON", &cfg.Warmup.Cron)

	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	boolean("RUN_MIGRATIONS", &cfg.Database.AutoMigrate)
	boolean("DB_LOG_QUERIES", &cfg.Database.LogQueries)

	if v := os.Getenv("CHART_MAX_POINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chart.MaxPointsPerRequest = n
		}
	}
	if v := os.Getenv("WARMUP_SYMBOLS"); v != "" {
		cfg.Warmup.Symbols = splitList(v)
	}
	if v := os.Getenv("WARMUP_WINDOWS"); v != "" {
		cfg.Warmup.Windows = splitList(v)
	}
}

func applyDefaults(cfg *Config) {
	setStr := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}

	setStr(&cfg.Server.Port, "8080")
	setDur(&cfg.Server.ShutdownTimeout, 10*time.Second)
	setStr(&cfg.Log.Level, "info")
	setStr(&cfg.Log.Format, "json")
	setDur(&cfg.HTTPClient.Timeout, 10*time.Second)
	setStr(&cfg.HTTPClient.UserAgent, "crypto_backend/1.0")
	setStr(&cfg.Binance.BaseURL, "https://api.binance.com")
	setStr(&cfg.CoinGecko.BaseURL, "https://api.coingecko.com/api/v3")
	setStr(&cfg.CoinGecko.VsCurrency, "usd")
	setInt(&cfg.CoinGecko.PerPage, 250)
	setDur(&cfg.Redis.CacheTTL, 24*time.Hour)
	setStr(&cfg.Database.Driver, "sqlite")
	setStr(&cfg.Database.DSN, "data/crypto_backend.db")
	setInt(&cfg.Chart.MaxPointsPerRequest, 1000)
	setStr(&cfg.Chart.QuoteCurrency, "USDT")
	setStr(&cfg.Chart.StablecoinReferencePair, "BTCUSDT")
	setInt(&cfg.Chart.RateLimit, 20)
	setDur(&cfg.Chart.RateInterval, time.Second)
	setStr(&cfg.Warmup.Cron, "@every 5m")
	if len(cfg.Warmup.Symbols) == 0 {
		cfg.Warmup.Symbols = []string{"BTC", "ETH"}
	}

	setInt(&cfg.Retry.List.MaxAttempts, 15)
	setDur(&cfg.Retry.List.Interval, 3*time.Second)
	setInt(&cfg.Retry.Search.MaxAttempts, 5)
	setDur(&cfg.Retry.Search.Interval, 2*time.Second)
	setInt(&cfg.Retry.DB.MaxAttempts, 20)
	setDur(&cfg.Retry.DB.Interval, 3*time.Second)
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port must be numeric, got %q", c.Server.Port))
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Chart.MaxPointsPerRequest <= 0 || c.Chart.MaxPointsPerRequest > 1000 {
		errs = append(errs, fmt.Errorf("chart.max_points_per_request must be in 1..1000, got %d", c.Chart.MaxPointsPerRequest))
	}
	if c.Chart.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("chart.rate_limit must not be negative"))
	}
	for _, w := range c.Warmup.Windows {
		if !entity.IsTimeWindow(w) {
			errs = append(errs, fmt.Errorf("warmup.windows: unknown window %q", w))
		}
	}
	for name, p := range map[string]RetryPolicy{"list": c.Retry.List, "search": c.Retry.Search, "db": c.Retry.DB} {
		if p.MaxAttempts < 1 {
			errs = append(errs, fmt.Errorf("retry.%s.max_attempts must be positive", name))
		}
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level. Invalid values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// WarmupWindows returns the configured warmup windows. Empty means all windows.
func (c *Config) WarmupWindows() []entity.TimeWindow {
	out := make([]entity.TimeWindow, 0, len(c.Warmup.Windows))
	for _, w := range c.Warmup.Windows {
		out = append(out, entity.ParseTimeWindow(w))
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
