// Package handler はklinesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"crypto_backend/internal/feature/klines/domain/entity"
	"crypto_backend/internal/feature/klines/transport/http/dto"
	"crypto_backend/internal/feature/klines/usecase"
)

// ChartUsecase はチャートデータ取得のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type ChartUsecase interface {
	GetChart(ctx context.Context, symbol string, window entity.TimeWindow) (entity.AggregationResult, error)
	GetSnapshot(ctx context.Context, symbol string, window entity.TimeWindow) (entity.AggregationResult, error)
}

// ChartHandler はチャートデータのHTTPリクエストを処理します。
type ChartHandler struct {
	uc ChartUsecase
}

// NewChartHandler は指定されたusecaseでChartHandlerの新しいインスタンスを生成します。
func NewChartHandler(uc ChartUsecase) *ChartHandler {
	return &ChartHandler{uc: uc}
}

// GetChart は銘柄と時間窓を受け取り、集計したチャートデータをJSONで返します。
// 一部のチャンクが失敗した場合も200で返し、partial と failedChunks で通知します。
//
// エンドポイント例:
// GET /charts/:symbol?window=1W
func (h *ChartHandler) GetChart(c *gin.Context) {
	symbol := c.Param("symbol")
	window := entity.ParseTimeWindow(c.DefaultQuery("window", string(entity.Window24H)))

	result, err := h.uc.GetChart(c.Request.Context(), symbol, window)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyResult) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: usecase.ErrEmptyResult.Error()})
			return
		}
		slog.Error("failed to get chart", "symbol", symbol, "window", window, "error", err)
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ToChartResponse(result))
}

// GetSnapshot は最後に保存されたスナップショットをJSONで返します。
//
// エンドポイント例:
// GET /charts/:symbol/snapshot?window=1W
func (h *ChartHandler) GetSnapshot(c *gin.Context) {
	symbol := c.Param("symbol")
	window := entity.ParseTimeWindow(c.DefaultQuery("window", string(entity.Window24H)))

	result, err := h.uc.GetSnapshot(c.Request.Context(), symbol, window)
	if err != nil {
		if errors.Is(err, usecase.ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: usecase.ErrSnapshotNotFound.Error()})
			return
		}
		slog.Error("failed to get snapshot", "symbol", symbol, "window", window, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ToChartResponse(result))
}

// ToChartResponse は集計結果をレスポンスDTOに変換します。
func ToChartResponse(r entity.AggregationResult) dto.ChartResponse {
	out := dto.ChartResponse{
		Symbol:       r.Symbol,
		Window:       string(r.Window),
		Interval:     string(r.Range.Interval),
		Partial:      r.Partial,
		FailedChunks: make([]dto.ChunkResponse, 0, len(r.FailedChunks)),
		Points:       make([]dto.PointResponse, 0, len(r.Series)),
	}
	for _, ch := range r.FailedChunks {
		out.FailedChunks = append(out.FailedChunks, dto.ChunkResponse{
			Start: ch.Start.UnixMilli(),
			End:   ch.End.UnixMilli(),
		})
	}
	for _, p := range r.Series {
		out.Points = append(out.Points, dto.PointResponse{
			OpenTime:  p.OpenTime.UnixMilli(),
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Close:     p.Close,
			CloseTime: p.CloseTime.UnixMilli(),
		})
	}
	return out
}
