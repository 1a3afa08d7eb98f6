// Package dto defines data transfer objects for the CoinGecko API responses.
package dto

import "github.com/shopspring/decimal"

// MarketRow is one element of the /coins/markets response.
type MarketRow struct {
	ID                       string              `json:"id"`
	Symbol                   string              `json:"symbol"`
	Name                     string              `json:"name"`
	Image                    string              `json:"image"`
	CurrentPrice             decimal.NullDecimal `json:"current_price"`
	PriceChangePercentage24h *float64            `json:"price_change_percentage_24h"`
	LastUpdated              string              `json:"last_updated"`
}

// SearchResponse is the /search response. Only coins are used.
type SearchResponse struct {
	Coins []SearchCoin `json:"coins"`
}

// SearchCoin is one coin hit of /search.
type SearchCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank *int   `json:"market_cap_rank"`
}
