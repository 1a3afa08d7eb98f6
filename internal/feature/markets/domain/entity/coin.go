// Package entity defines the domain models for the markets feature.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coin is one row of a market listing.
type Coin struct {
	ID                       string          // Upstream identifier (e.g., "bitcoin")
	Name                     string          // Display name
	Symbol                   string          // Ticker, upper-cased (e.g., "BTC")
	Image                    string          // Logo URL
	CurrentPrice             decimal.Decimal // Price in the listing currency
	PriceChangePercentage24h float64
	LastUpdated              time.Time
}
