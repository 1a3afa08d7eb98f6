// Package coingecko provides a client for the CoinGecko market listing API.
package coingecko

import "time"

// Defaults for the public API.
const (
	DefaultBaseURL    = "https://api.coingecko.com/api/v3"
	DefaultVsCurrency = "usd"
	DefaultPerPage    = 250
)

// Config holds configuration for the CoinGecko API client.
type Config struct {
	BaseURL    string        // Base URL for the API (e.g., "https://api.coingecko.com/api/v3")
	APIKey     string        // Demo API key, sent as x-cg-demo-api-key when set
	VsCurrency string        // Listing currency
	PerPage    int           // Rows per listing page
	Timeout    time.Duration // Per-request deadline; zero leaves only the client timeout
}
