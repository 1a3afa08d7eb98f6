package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto_backend/internal/feature/markets/domain/entity"
	"crypto_backend/internal/feature/markets/usecase"
	"crypto_backend/internal/platform/externalapi/coingecko/dto"
)

// CoinGeckoClient はCoinGecko APIから銘柄一覧と検索結果を取得するCoinProvider実装です。
type CoinGeckoClient struct {
	cfg    Config
	client *http.Client
}

// CoinGeckoClientがCoinProviderを実装していることをコンパイル時に検証します。
var _ usecase.CoinProvider = (*CoinGeckoClient)(nil)

// NewCoinGeckoClient は指定された設定とHTTPクライアントでCoinGeckoClientの新しいインスタンスを生成します。
func NewCoinGeckoClient(cfg Config, client *http.Client) *CoinGeckoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.VsCurrency == "" {
		cfg.VsCurrency = DefaultVsCurrency
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	return &CoinGeckoClient{cfg: cfg, client: client}
}

// MarketsByPage は時価総額順の銘柄一覧を1ページ分取得します。
func (c *CoinGeckoClient) MarketsByPage(ctx context.Context, page int) ([]entity.Coin, error) {
	q := url.Values{}
	q.Set("vs_currency", c.cfg.VsCurrency)
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	q.Set("page", strconv.Itoa(page))
	return c.markets(ctx, q)
}

// MarketsByIDs は指定IDの銘柄を取得します。
func (c *CoinGeckoClient) MarketsByIDs(ctx context.Context, ids []string) ([]entity.Coin, error) {
	q := url.Values{}
	q.Set("vs_currency", c.cfg.VsCurrency)
	q.Set("ids", strings.Join(ids, ","))
	return c.markets(ctx, q)
}

// SearchIDs は検索語に一致する銘柄のIDを関連度順に返します。
func (c *CoinGeckoClient) SearchIDs(ctx context.Context, query string) ([]string, error) {
	q := url.Values{}
	q.Set("query", query)

	var body dto.SearchResponse
	if err := c.get(ctx, "/search", q, &body); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(body.Coins))
	for _, coin := range body.Coins {
		if coin.ID != "" {
			ids = append(ids, coin.ID)
		}
	}
	return ids, nil
}

func (c *CoinGeckoClient) markets(ctx context.Context, q url.Values) ([]entity.Coin, error) {
	var rows []dto.MarketRow
	if err := c.get(ctx, "/coins/markets", q, &rows); err != nil {
		return nil, err
	}

	coins := make([]entity.Coin, 0, len(rows))
	for _, r := range rows {
		coins = append(coins, toEntity(r))
	}
	return coins, nil
}

// get はGETリクエストを送信し、JSONレスポンスを out にデコードします。
func (c *CoinGeckoClient) get(ctx context.Context, path string, q url.Values, out any) error {
	u := fmt.Sprintf("%s%s?%s", c.cfg.BaseURL, path, q.Encode())

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.cfg.APIKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("coingecko http %d: %w: %w", res.StatusCode, usecase.ErrRateLimited, usecase.ErrUpstream)
	case res.StatusCode < 200 || res.StatusCode >= 300:
		return fmt.Errorf("coingecko http %d: %w", res.StatusCode, usecase.ErrUpstream)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// toEntity はDTOをドメインエンティティに変換します。欠損値はゼロ値になります。
func toEntity(r dto.MarketRow) entity.Coin {
	coin := entity.Coin{
		ID:     r.ID,
		Name:   r.Name,
		Symbol: strings.ToUpper(r.Symbol),
		Image:  r.Image,
	}
	if r.CurrentPrice.Valid {
		coin.CurrentPrice = r.CurrentPrice.Decimal
	}
	if r.PriceChangePercentage24h != nil {
		coin.PriceChangePercentage24h = *r.PriceChangePercentage24h
	}
	if t, err := time.Parse(time.RFC3339, r.LastUpdated); err == nil {
		coin.LastUpdated = t.UTC()
	}
	return coin
}
