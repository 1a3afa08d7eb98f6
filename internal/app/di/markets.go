package di

import (
	"net/http"

	"crypto_backend/internal/app/config"
	"crypto_backend/internal/feature/markets/usecase"
	"crypto_backend/internal/platform/externalapi/coingecko"
)

// NewMarketsUsecase creates the listing and search usecase backed by CoinGecko.
func NewMarketsUsecase(cfg *config.Config, client *http.Client) *usecase.MarketsUsecase {
	provider := coingecko.NewCoinGeckoClient(coingecko.Config{
		BaseURL:    cfg.CoinGecko.BaseURL,
		APIKey:     cfg.CoinGecko.APIKey,
		VsCurrency: cfg.CoinGecko.VsCurrency,
		PerPage:    cfg.CoinGecko.PerPage,
		Timeout:    cfg.HTTPClient.Timeout,
	}, client)
	return usecase.NewMarketsUsecase(provider, usecase.Policies{
		List:   RetryPolicy(cfg.Retry.List),
		Search: RetryPolicy(cfg.Retry.Search),
	})
}
