package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"crypto_backend/internal/feature/klines/domain/entity"
	"crypto_backend/internal/shared/ratelimiter"
)

const (
	// DefaultMaxPointsPerRequest は上流APIの1リクエストあたりの最大件数です。
	DefaultMaxPointsPerRequest = 1000
	// DefaultQuoteCurrency は価格の基準となる通貨です。
	DefaultQuoteCurrency = "USDT"
	// DefaultStablecoinReferencePair は基準通貨そのもののチャートで時間軸の取得に使うペアです。
	DefaultStablecoinReferencePair = "BTCUSDT"

	stablecoinPrice = "1.0"
)

// KlineFetcher は上流APIから1チャンク分の価格データを取得するインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type KlineFetcher interface {
	FetchKlines(ctx context.Context, symbol string, start, end time.Time, interval entity.Interval) ([]entity.PricePoint, error)
}

// AggregatorConfig はAggregatorの動作パラメータです。
type AggregatorConfig struct {
	MaxPointsPerRequest     int    // 0以下の場合はDefaultMaxPointsPerRequest
	QuoteCurrency           string // 空の場合はDefaultQuoteCurrency
	StablecoinReferencePair string // 空の場合はDefaultStablecoinReferencePair
}

// Aggregator はチャンク単位の取得結果を重複のない1本の系列に統合します。
type Aggregator struct {
	fetcher KlineFetcher
	limiter ratelimiter.RateLimiterInterface
	cfg     AggregatorConfig
}

// NewAggregator は新しい Aggregator を作成します。limiter が nil の場合はリクエスト間隔を制御しません。
func NewAggregator(fetcher KlineFetcher, limiter ratelimiter.RateLimiterInterface, cfg AggregatorConfig) *Aggregator {
	if cfg.MaxPointsPerRequest <= 0 {
		cfg.MaxPointsPerRequest = DefaultMaxPointsPerRequest
	}
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = DefaultQuoteCurrency
	}
	if cfg.StablecoinReferencePair == "" {
		cfg.StablecoinReferencePair = DefaultStablecoinReferencePair
	}
	cfg.QuoteCurrency = strings.ToUpper(cfg.QuoteCurrency)
	cfg.StablecoinReferencePair = strings.ToUpper(cfg.StablecoinReferencePair)
	return &Aggregator{fetcher: fetcher, limiter: limiter, cfg: cfg}
}

// Aggregate は時間窓に対応する全チャンクを順番に1回ずつ取得し、成功した分を統合して返します。
// 1つのチャンクが失敗しても処理は中断せず、失敗したチャンクを FailedChunks に記録します。
// エラーは返さず、結果の解釈は呼び出し元に委ねます。
func (a *Aggregator) Aggregate(ctx context.Context, symbol string, window entity.TimeWindow, maxPointsPerRequest int, now time.Time) entity.AggregationResult {
	window = entity.ParseTimeWindow(string(window))
	if maxPointsPerRequest <= 0 {
		maxPointsPerRequest = a.cfg.MaxPointsPerRequest
	}

	base := strings.ToUpper(strings.TrimSpace(symbol))
	upstream, stablecoin := a.upstreamSymbol(base)
	r := Resolve(window, now)

	result := entity.AggregationResult{Symbol: base, Window: window, Range: r}
	acc := newSeriesAccumulator()

	for chunk := range PlanSeq(r, maxPointsPerRequest) {
		// キャンセル済みの場合は残りのチャンクを取得せずに失敗として記録する
		if ctx.Err() != nil {
			result.FailedChunks = append(result.FailedChunks, chunk)
			continue
		}

		points, err := a.fetchChunk(ctx, upstream, chunk, r.Interval)
		if err != nil {
			slog.Warn("failed to fetch chunk",
				"symbol", upstream,
				"interval", r.Interval,
				"start", chunk.Start.UnixMilli(),
				"end", chunk.End.UnixMilli(),
				"error", err,
			)
			result.FailedChunks = append(result.FailedChunks, chunk)
			continue
		}
		acc.merge(points)
	}

	series := acc.sorted()
	if stablecoin {
		for i := range series {
			series[i].Open = stablecoinPrice
			series[i].High = stablecoinPrice
			series[i].Low = stablecoinPrice
			series[i].Close = stablecoinPrice
		}
	}
	result.Series = series
	result.Partial = len(result.FailedChunks) > 0

	slog.Debug("aggregation finished",
		"symbol", upstream,
		"window", window,
		"points", len(series),
		"failed_chunks", len(result.FailedChunks),
	)
	return result
}

// upstreamSymbol はベース銘柄を上流APIの取引ペアに変換します。
// ベース銘柄が基準通貨そのものの場合は参照ペアを返し、stablecoin を true にします。
func (a *Aggregator) upstreamSymbol(base string) (string, bool) {
	if base == a.cfg.QuoteCurrency {
		return a.cfg.StablecoinReferencePair, true
	}
	return base + a.cfg.QuoteCurrency, false
}

// fetchChunk はレートリミットを待機してから1チャンクを取得します。
func (a *Aggregator) fetchChunk(ctx context.Context, symbol string, chunk entity.Chunk, interval entity.Interval) ([]entity.PricePoint, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, &TransientFetchError{Symbol: symbol, Chunk: chunk, Err: err}
		}
	}
	points, err := a.fetcher.FetchKlines(ctx, symbol, chunk.Start, chunk.End, interval)
	if err != nil {
		var tfe *TransientFetchError
		if errors.As(err, &tfe) {
			return nil, err
		}
		return nil, &TransientFetchError{Symbol: symbol, Chunk: chunk, Err: err}
	}
	return points, nil
}

// seriesAccumulator はOpenTimeをキーに先着優先で価格データを蓄積します。
type seriesAccumulator struct {
	seen   map[int64]struct{}
	points []entity.PricePoint
}

func newSeriesAccumulator() *seriesAccumulator {
	return &seriesAccumulator{seen: make(map[int64]struct{})}
}

// merge は未登録のOpenTimeを持つデータのみを追加します。後から来た重複は破棄されます。
func (s *seriesAccumulator) merge(points []entity.PricePoint) {
	for _, p := range points {
		key := p.OpenTime.UnixMilli()
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.points = append(s.points, p)
	}
}

// sorted はOpenTimeの昇順に並べた系列を返します。
func (s *seriesAccumulator) sorted() []entity.PricePoint {
	out := make([]entity.PricePoint, len(s.points))
	copy(out, s.points)
	slices.SortStableFunc(out, func(a, b entity.PricePoint) int {
		return a.OpenTime.Compare(b.OpenTime)
	})
	return out
}
