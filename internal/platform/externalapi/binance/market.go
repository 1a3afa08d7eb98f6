package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crypto_backend/internal/feature/klines/domain/entity"
	"crypto_backend/internal/feature/klines/usecase"
	"crypto_backend/internal/platform/externalapi/binance/dto"
)

// MaxLimit はklinesエンドポイントが1リクエストで返す最大件数です。
const MaxLimit = 1000

// BinanceMarket はBinanceのklinesエンドポイントから価格データを取得するKlineFetcher実装です。
type BinanceMarket struct {
	cfg    Config
	client *http.Client
}

// BinanceMarketがKlineFetcherを実装していることをコンパイル時に検証します。
var _ usecase.KlineFetcher = (*BinanceMarket)(nil)

// NewBinanceMarket は指定された設定とHTTPクライアントでBinanceMarketの新しいインスタンスを生成します。
func NewBinanceMarket(cfg Config, client *http.Client) *BinanceMarket {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &BinanceMarket{cfg: cfg, client: client}
}

// FetchKlines は [start, end] の範囲のローソク足を取得します。
// 時刻はミリ秒のUNIXエポックで送信します。1行でも不正な行があればチャンク全体を失敗とします。
func (b *BinanceMarket) FetchKlines(ctx context.Context, symbol string, start, end time.Time, interval entity.Interval) ([]entity.PricePoint, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(interval))
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(MaxLimit))

	u := fmt.Sprintf("%s/api/v3/klines?%s", b.cfg.BaseURL, q.Encode())

	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if err := checkStatus(res); err != nil {
		return nil, err
	}

	var rows []dto.KlineRow
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	points := make([]entity.PricePoint, 0, len(rows))
	for i, row := range rows {
		p, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// checkStatus は2xx以外のレスポンスをエラーに変換します。429と418はレートリミットとして扱います。
func checkStatus(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	if res.StatusCode == http.StatusTooManyRequests || res.StatusCode == http.StatusTeapot {
		return fmt.Errorf("binance http %d: %w", res.StatusCode, usecase.ErrRateLimited)
	}

	var body dto.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err := json.Unmarshal(raw, &body); err == nil && body.Msg != "" {
		return fmt.Errorf("binance http %d: %s (code %d)", res.StatusCode, body.Msg, body.Code)
	}
	return fmt.Errorf("binance http %d", res.StatusCode)
}

// decodeRow は1行の位置配列をPricePointに変換します。
func decodeRow(row dto.KlineRow) (entity.PricePoint, error) {
	if len(row) < dto.KlineRowMinFields {
		return entity.PricePoint{}, fmt.Errorf("expected at least %d fields, got %d", dto.KlineRowMinFields, len(row))
	}

	openTime, err := decodeMillis(row[dto.IdxOpenTime])
	if err != nil {
		return entity.PricePoint{}, fmt.Errorf("parse open time: %w", err)
	}
	closeTime, err := decodeMillis(row[dto.IdxCloseTime])
	if err != nil {
		return entity.PricePoint{}, fmt.Errorf("parse close time: %w", err)
	}

	var prices [4]string
	for i, idx := range []int{dto.IdxOpen, dto.IdxHigh, dto.IdxLow, dto.IdxClose} {
		prices[i], err = decodePrice(row[idx])
		if err != nil {
			return entity.PricePoint{}, err
		}
	}

	return entity.PricePoint{
		OpenTime:  openTime,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		CloseTime: closeTime,
	}, nil
}

func decodeMillis(raw json.RawMessage) (time.Time, error) {
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// decodePrice は価格の文字列を検証し、上流の表記のまま返します。
func decodePrice(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("parse price %s: %w", raw, err)
	}
	if _, err := decimal.NewFromString(s); err != nil {
		return "", fmt.Errorf("parse price %q: %w", s, err)
	}
	return s, nil
}
