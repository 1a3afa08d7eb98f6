// Package dto defines data transfer objects for the markets HTTP API.
package dto

// CoinItem represents a coin in the API response.
type CoinItem struct {
	ID                       string  `json:"id"`
	Name                     string  `json:"name"`
	Symbol                   string  `json:"symbol"`
	Image                    string  `json:"image"`
	CurrentPrice             string  `json:"currentPrice"` // Decimal text
	PriceChangePercentage24h float64 `json:"priceChangePercentage24h"`
	LastUpdated              int64   `json:"lastUpdated"` // Unix milliseconds, 0 when unknown
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
