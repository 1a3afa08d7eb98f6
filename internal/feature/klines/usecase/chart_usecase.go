package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"crypto_backend/internal/feature/klines/domain/entity"
)

// SnapshotRepository は公開済み集計結果の永続化レイヤーを抽象化します。
type SnapshotRepository interface {
	Save(ctx context.Context, result entity.AggregationResult) error
	Find(ctx context.Context, symbol string, window entity.TimeWindow) (entity.AggregationResult, error)
}

// ChartUsecase はHTTPなどの利用者向けにチャートデータを提供します。
type ChartUsecase struct {
	agg       ChartAggregator
	snapshots SnapshotRepository
	maxPoints int
	clock     func() time.Time
	group     singleflight.Group
}

// NewChartUsecase は新しい ChartUsecase を作成します。snapshots は nil でも構いません。
func NewChartUsecase(agg ChartAggregator, snapshots SnapshotRepository, maxPoints int) *ChartUsecase {
	return &ChartUsecase{
		agg:       agg,
		snapshots: snapshots,
		maxPoints: maxPoints,
		clock:     time.Now,
	}
}

// GetChart は指定銘柄・時間窓の系列を集計して返します。
// 同一銘柄・時間窓の同時リクエストは1回の集計にまとめられます。
// 系列が空の場合は ErrEmptyResult を返します。部分的な結果はエラーになりません。
func (u *ChartUsecase) GetChart(ctx context.Context, symbol string, window entity.TimeWindow) (entity.AggregationResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	window = entity.ParseTimeWindow(string(window))
	key := symbol + ":" + string(window)

	// 1つのクライアントの切断が相乗りしている他のリクエストを巻き込まないようにする
	runCtx := context.WithoutCancel(ctx)
	ch := u.group.DoChan(key, func() (any, error) {
		return u.agg.Aggregate(runCtx, symbol, window, u.maxPoints, u.clock()), nil
	})

	select {
	case <-ctx.Done():
		return entity.AggregationResult{}, ctx.Err()
	case res := <-ch:
		result := res.Val.(entity.AggregationResult)
		result.Series = result.Points()
		if result.Empty() {
			return result, fmt.Errorf("%s %s: %w", symbol, window, ErrEmptyResult)
		}
		return result, nil
	}
}

// GetSnapshot は最後に保存されたスナップショットを返します。
func (u *ChartUsecase) GetSnapshot(ctx context.Context, symbol string, window entity.TimeWindow) (entity.AggregationResult, error) {
	if u.snapshots == nil {
		return entity.AggregationResult{}, ErrSnapshotNotFound
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return u.snapshots.Find(ctx, symbol, entity.ParseTimeWindow(string(window)))
}
