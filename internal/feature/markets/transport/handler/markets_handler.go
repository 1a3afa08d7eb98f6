package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"crypto_backend/internal/feature/markets/domain/entity"
	"crypto_backend/internal/feature/markets/transport/http/dto"
	"crypto_backend/internal/feature/markets/usecase"
)

// MarketsUsecase は銘柄一覧・検索のユースケースインターフェースです。
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type MarketsUsecase interface {
	ListPage(ctx context.Context, page int) ([]entity.Coin, error)
	Search(ctx context.Context, query string) ([]entity.Coin, error)
	ByIDs(ctx context.Context, ids []string) ([]entity.Coin, error)
}

// MarketsHandler は銘柄一覧・検索に関するHTTPリクエストを処理します。
type MarketsHandler struct {
	uc MarketsUsecase
}

// NewMarketsHandler は新しい MarketsHandler を作成します。
func NewMarketsHandler(uc MarketsUsecase) *MarketsHandler {
	return &MarketsHandler{uc: uc}
}

// List は時価総額順の銘柄一覧を1ページ分返します。
//
// エンドポイント例:
// GET /markets?page=1
func (h *MarketsHandler) List(c *gin.Context) {
	// 数値でない場合は0となり、usecaseで1ページ目に補正される
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	coins, err := h.uc.ListPage(c.Request.Context(), page)
	h.respond(c, coins, err)
}

// Search は検索語に一致する銘柄を返します。
//
// エンドポイント例:
// GET /search?q=sol
func (h *MarketsHandler) Search(c *gin.Context) {
	coins, err := h.uc.Search(c.Request.Context(), c.Query("q"))
	h.respond(c, coins, err)
}

// ByIDs はカンマ区切りのIDで指定された銘柄を返します。
//
// エンドポイント例:
// GET /coins?ids=bitcoin,ethereum
func (h *MarketsHandler) ByIDs(c *gin.Context) {
	coins, err := h.uc.ByIDs(c.Request.Context(), strings.Split(c.Query("ids"), ","))
	h.respond(c, coins, err)
}

// respond はエラーをHTTPステータスに変換し、結果をDTOとして返します。
func (h *MarketsHandler) respond(c *gin.Context, coins []entity.Coin, err error) {
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrEmptyQuery):
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: usecase.ErrEmptyQuery.Error()})
		case errors.Is(err, usecase.ErrNoData):
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: usecase.ErrNoData.Error()})
		default:
			slog.Error("markets request failed", "path", c.FullPath(), "error", err)
			c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, ToCoinItems(coins))
}

// ToCoinItems はエンティティをレスポンスDTOに変換します。
func ToCoinItems(coins []entity.Coin) []dto.CoinItem {
	out := make([]dto.CoinItem, 0, len(coins))
	for _, coin := range coins {
		item := dto.CoinItem{
			ID:                       coin.ID,
			Name:                     coin.Name,
			Symbol:                   coin.Symbol,
			Image:                    coin.Image,
			CurrentPrice:             coin.CurrentPrice.String(),
			PriceChangePercentage24h: coin.PriceChangePercentage24h,
		}
		if !coin.LastUpdated.IsZero() {
			item.LastUpdated = coin.LastUpdated.UnixMilli()
		}
		out = append(out, item)
	}
	return out
}
