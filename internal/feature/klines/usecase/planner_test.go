package usecase_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto_backend/internal/feature/klines/domain/entity"
	"crypto_backend/internal/feature/klines/usecase"
)

// testNow はテスト用の固定時刻です（ミリ秒以下の端数を含む）。
var testNow = time.Date(2025, 1, 15, 12, 34, 56, 789_000_000, time.UTC)

// TestResolve は時間窓ごとの開始・終了時刻とサンプリング間隔を検証します。
func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		window       entity.TimeWindow
		wantDuration time.Duration
		wantInterval entity.Interval
	}{
		{entity.Window24H, 24 * time.Hour, entity.Interval1m},
		{entity.Window1W, 7 * 24 * time.Hour, entity.Interval1h},
		{entity.Window1M, 30 * 24 * time.Hour, entity.Interval1d},
		{entity.Window6M, 180 * 24 * time.Hour, entity.Interval1d},
		{entity.Window1Y, 365 * 24 * time.Hour, entity.Interval1d},
		{entity.Window5Y, 1825 * 24 * time.Hour, entity.Interval1d},
	}

	for _, tt := range tests {
		t.Run(string(tt.window), func(t *testing.T) {
			t.Parallel()

			r := usecase.Resolve(tt.window, testNow)

			assert.Equal(t, testNow.Add(-tt.wantDuration), r.Start)
			assert.Equal(t, time.Date(2025, 1, 15, 12, 34, 56, 0, time.UTC), r.End, "end must be truncated to whole seconds")
			assert.Equal(t, tt.wantInterval, r.Interval)
			assert.True(t, r.Start.Before(r.End))
		})
	}
}

// TestPlan_Coverage はチャンク列が範囲を隙間なく覆い、各チャンクが上限件数を超えないことを検証します。
func TestPlan_Coverage(t *testing.T) {
	t.Parallel()

	maxPoints := []int{1, 7, 100, 168, 500, 1000, 5000}

	for _, w := range entity.Windows {
		for _, m := range maxPoints {
			t.Run(fmt.Sprintf("%s/max=%d", w, m), func(t *testing.T) {
				t.Parallel()

				r := usecase.Resolve(w, testNow)
				chunks := usecase.Plan(r, m)
				require.NotEmpty(t, chunks)

				assert.Equal(t, r.Start, chunks[0].Start, "first chunk must start at range start")
				assert.Equal(t, r.End, chunks[len(chunks)-1].End, "last chunk must end at range end")

				limit := time.Duration(m) * r.Interval.Duration()
				for i, c := range chunks {
					assert.False(t, c.End.Before(c.Start), "chunk %d is inverted", i)
					assert.Less(t, c.End.Sub(c.Start), limit, "chunk %d exceeds %d points", i, m)
					if i > 0 {
						assert.Equal(t, chunks[i-1].End.Add(time.Millisecond), c.Start, "gap or overlap before chunk %d", i)
					}
				}
			})
		}
	}
}

// TestPlan_ChunkCounts は代表的な組み合わせのチャンク数を検証します。
func TestPlan_ChunkCounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		window    entity.TimeWindow
		maxPoints int
		want      int
	}{
		{"1W hourly fits in one request", entity.Window1W, 1000, 1},
		{"24H minutely needs two requests", entity.Window24H, 1000, 2},
		{"5Y daily needs two requests", entity.Window5Y, 1000, 2},
		{"1Y daily fits in one request", entity.Window1Y, 1000, 1},
		{"24H with small cap", entity.Window24H, 100, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chunks := usecase.Plan(usecase.Resolve(tt.window, testNow), tt.maxPoints)
			assert.Len(t, chunks, tt.want)
		})
	}
}

// TestPlan_EmptyRange は開始と終了が等しい範囲や不正な上限でチャンクが生成されないことを検証します。
func TestPlan_EmptyRange(t *testing.T) {
	t.Parallel()

	end := testNow.Truncate(time.Second)
	empty := entity.ResolvedRange{Start: end, End: end, Interval: entity.Interval1m}
	assert.Empty(t, usecase.Plan(empty, 1000))

	inverted := entity.ResolvedRange{Start: end, End: end.Add(-time.Hour), Interval: entity.Interval1m}
	assert.Empty(t, usecase.Plan(inverted, 1000))

	valid := usecase.Resolve(entity.Window24H, testNow)
	assert.Empty(t, usecase.Plan(valid, 0))
	assert.Empty(t, usecase.Plan(valid, -1))
}

// TestPlanSeq_Restartable は同じシーケンスを複数回走査しても同じ結果になることを検証します。
func TestPlanSeq_Restartable(t *testing.T) {
	t.Parallel()

	seq := usecase.PlanSeq(usecase.Resolve(entity.Window24H, testNow), 100)

	var first, second []entity.Chunk
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}
	assert.Equal(t, first, second)

	// 途中で打ち切っても次の走査に影響しない
	for range seq {
		break
	}
	var third []entity.Chunk
	for c := range seq {
		third = append(third, c)
	}
	assert.Equal(t, first, third)
}
