package di

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"crypto_backend/internal/app/config"
	klinesadapters "crypto_backend/internal/feature/klines/adapters"
	"crypto_backend/internal/feature/klines/usecase"
	"crypto_backend/internal/platform/cache"
	"crypto_backend/internal/platform/externalapi/binance"
	"crypto_backend/internal/shared/ratelimiter"
)

// NewKlineFetcher creates the Binance fetcher.
// If Redis is available, closed chunks are served from the Redis cache.
func NewKlineFetcher(cfg *config.Config, client *http.Client, rdb *redis.Client) usecase.KlineFetcher {
	market := binance.NewBinanceMarket(binance.Config{
		BaseURL: cfg.Binance.BaseURL,
		Timeout: cfg.HTTPClient.Timeout,
	}, client)
	if rdb == nil {
		return market
	}
	return cache.NewCachingKlineFetcher(rdb, cfg.Redis.CacheTTL, market, "klines")
}

// NewAggregator creates the chunk aggregator with the configured upstream throttle.
// A zero rate limit disables throttling.
func NewAggregator(cfg *config.Config, fetcher usecase.KlineFetcher) *usecase.Aggregator {
	var limiter ratelimiter.RateLimiterInterface
	if cfg.Chart.RateLimit > 0 {
		limiter = ratelimiter.NewRateLimiter(cfg.Chart.RateLimit, cfg.Chart.RateInterval)
	}
	return usecase.NewAggregator(fetcher, limiter, usecase.AggregatorConfig{
		MaxPointsPerRequest:     cfg.Chart.MaxPointsPerRequest,
		QuoteCurrency:           cfg.Chart.QuoteCurrency,
		StablecoinReferencePair: cfg.Chart.StablecoinReferencePair,
	})
}

// NewSnapshotRepository returns the gorm snapshot store, or nil without a database.
func NewSnapshotRepository(db *gorm.DB) usecase.SnapshotRepository {
	if db == nil {
		return nil
	}
	return klinesadapters.NewSnapshotRepository(db)
}

// NewChartUsecase wires the full chart pipeline.
func NewChartUsecase(cfg *config.Config, client *http.Client, rdb *redis.Client, db *gorm.DB) *usecase.ChartUsecase {
	agg := NewAggregator(cfg, NewKlineFetcher(cfg, client, rdb))
	return usecase.NewChartUsecase(agg, NewSnapshotRepository(db), cfg.Chart.MaxPointsPerRequest)
}

// NewWarmupJob wires the scheduled snapshot refresh.
func NewWarmupJob(cfg *config.Config, client *http.Client, rdb *redis.Client, db *gorm.DB) *usecase.WarmupJob {
	agg := NewAggregator(cfg, NewKlineFetcher(cfg, client, rdb))
	return usecase.NewWarmupJob(agg, NewSnapshotRepository(db), cfg.Warmup.Symbols, cfg.WarmupWindows(),
		usecase.WithMaxPoints(cfg.Chart.MaxPointsPerRequest))
}
