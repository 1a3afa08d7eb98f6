// Package binance provides a client for the Binance spot market data API.
package binance

import "time"

// DefaultBaseURL is the public Binance spot REST endpoint.
const DefaultBaseURL = "https://api.binance.com"

// Config holds configuration for the Binance API client.
type Config struct {
	BaseURL string        // Base URL for the API (e.g., "https://api.binance.com")
	Timeout time.Duration // Per-request deadline; zero leaves only the client timeout
}
