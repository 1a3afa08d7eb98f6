// Package dto defines data transfer objects for the Binance API responses.
package dto

import "encoding/json"

// KlineRow is one row of the /api/v3/klines response.
// Binance encodes a candle as a positional array:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, takerBase, takerQuote, ignore].
type KlineRow []json.RawMessage

// KlineRowMinFields is the number of leading fields a row must carry.
const KlineRowMinFields = 7

// Positions of the fields used by the client.
const (
	IdxOpenTime  = 0
	IdxOpen      = 1
	IdxHigh      = 2
	IdxLow       = 3
	IdxClose     = 4
	IdxCloseTime = 6
)

// ErrorResponse is the body Binance returns with a non-2xx status.
type ErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
