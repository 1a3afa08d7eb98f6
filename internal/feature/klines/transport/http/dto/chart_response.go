// Package dto defines data transfer objects for the klines HTTP API.
package dto

// PointResponse はローソク足1本分のレスポンスDTOです。時刻はミリ秒のUNIXエポックです。
type PointResponse struct {
	OpenTime  int64  `json:"openTime"`  // 開始時刻
	Open      string `json:"open"`      // 始値
	High      string `json:"high"`      // 高値
	Low       string `json:"low"`       // 安値
	Close     string `json:"close"`     // 終値
	CloseTime int64  `json:"closeTime"` // 終了時刻
}

// ChunkResponse は取得に失敗したチャンクの範囲です。
type ChunkResponse struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// ChartResponse はチャートデータのレスポンスDTOです。
type ChartResponse struct {
	Symbol       string          `json:"symbol"`
	Window       string          `json:"window"`
	Interval     string          `json:"interval"`
	Partial      bool            `json:"partial"`
	FailedChunks []ChunkResponse `json:"failedChunks"`
	Points       []PointResponse `json:"points"`
}

// ErrorResponse はエラー時のレスポンスDTOです。
type ErrorResponse struct {
	Error string `json:"error"`
}
