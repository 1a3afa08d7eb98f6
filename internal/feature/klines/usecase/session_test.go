package usecase_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto_backend/internal/feature/klines/domain/entity"
	"crypto_backend/internal/feature/klines/usecase"
)

// mockChartAggregator はChartAggregatorインターフェースのモック実装です。
type mockChartAggregator struct {
	AggregateFunc func(ctx context.Context, symbol string, window entity.TimeWindow, maxPoints int, now time.Time) entity.AggregationResult
	calls         atomic.Int32
}

func (m *mockChartAggregator) Aggregate(ctx context.Context, symbol string, window entity.TimeWindow, maxPoints int, now time.Time) entity.AggregationResult {
	m.calls.Add(1)
	if m.AggregateFunc != nil {
		return m.AggregateFunc(ctx, symbol, window, maxPoints, now)
	}
	return entity.AggregationResult{Symbol: symbol, Window: window}
}

func resultWith(symbol string, window entity.TimeWindow, n int) entity.AggregationResult {
	return entity.AggregationResult{
		Symbol: symbol,
		Window: window,
		Series: seqPoints(testNow.Add(-time.Hour).Truncate(time.Minute), n, entity.Interval1m),
	}
}

// TestChartSession_SelectWindowPublishes は最新の実行結果が公開され、Currentから参照できることを検証します。
func TestChartSession_SelectWindowPublishes(t *testing.T) {
	t.Parallel()

	var gotMax int
	var gotNow time.Time
	agg := &mockChartAggregator{
		AggregateFunc: func(ctx context.Context, symbol string, window entity.TimeWindow, maxPoints int, now time.Time) entity.AggregationResult {
			gotMax, gotNow = maxPoints, now
			return resultWith(symbol, window, 3)
		},
	}
	s := usecase.NewChartSession(agg, "BTC",
		usecase.WithClock(func() time.Time { return testNow }),
		usecase.WithMaxPoints(500),
	)

	_, ok := s.Current()
	assert.False(t, ok, "nothing is published before the first run")
	assert.Equal(t, entity.Window24H, s.Window())

	snap, ok := s.SelectWindow(context.Background(), "1w")
	require.True(t, ok)
	assert.Equal(t, uint64(1), snap.RunID)
	assert.Equal(t, entity.Window1W, snap.Result.Window)
	assert.Equal(t, entity.Window1W, s.Window())
	assert.Equal(t, 500, gotMax)
	assert.Equal(t, testNow, gotNow)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, snap.RunID, cur.RunID)
	assert.Len(t, cur.Result.Series, 3)

	// 呼び出し元のコピーを変更しても公開済みの系列には影響しない
	cur.Result.Series[0].Close = "mutated"
	again, _ := s.Current()
	assert.Equal(t, "105.0", again.Result.Series[0].Close)
}

// TestChartSession_PublishedSeriesIsIsolated は呼び出し元・フック・チャネルに渡した系列を変更しても公開済みの系列が変わらないことを検証します。
func TestChartSession_PublishedSeriesIsIsolated(t *testing.T) {
	t.Parallel()

	var hookSaw string
	agg := &mockChartAggregator{
		AggregateFunc: func(ctx context.Context, symbol string, window entity.TimeWindow, maxPoints int, now time.Time) entity.AggregationResult {
			r := resultWith(symbol, window, 3)
			r.FailedChunks = []entity.Chunk{{Start: testNow.Add(-2 * time.Hour), End: testNow.Add(-time.Hour)}}
			return r
		},
	}
	var s *usecase.ChartSession
	s = usecase.NewChartSession(agg, "BTC", usecase.WithPublishHook(func(ctx context.Context, snap usecase.Snapshot) {
		snap.Result.Series[0].Close = "hook"
		cur, _ := s.Current()
		hookSaw = cur.Result.Series[0].Close
	}))

	snap, ok := s.SelectWindow(context.Background(), entity.Window1W)
	require.True(t, ok)
	assert.Equal(t, "105.0", hookSaw, "hook must receive its own copy")

	snap.Result.Series[0].Close = "caller"
	snap.Result.FailedChunks[0].Start = time.Time{}

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "105.0", cur.Result.Series[0].Close)
	assert.Equal(t, testNow.Add(-2*time.Hour), cur.Result.FailedChunks[0].Start)

	started, ok := <-s.Start(context.Background(), entity.Window1M)
	require.True(t, ok)
	started.Result.Series[1].Close = "channel"

	cur, _ = s.Current()
	assert.Equal(t, "105.0", cur.Result.Series[1].Close)
}

// TestChartSession_CanceledEmptyRunKeepsPrevious は呼び出し元のキャンセルで空になった結果が公開済みの系列を上書きしないことを検証します。
func TestChartSession_CanceledEmptyRunKeepsPrevious(t *testing.T) {
	t.Parallel()

	points := 4
	agg := &mockChartAggregator{
		AggregateFunc: func(ctx context.Context, symbol string, window entity.TimeWindow, maxPoints int, now time.Time) entity.AggregationResult {
			if ctx.Err() != nil {
				r := resultWith(symbol, window, points)
				r.FailedChunks = []entity.Chunk{{Start: now.Add(-time.Hour), End: now}}
				r.Partial = true
				return r
			}
			return resultWith(symbol, window, 4)
		},
	}
	s := usecase.NewChartSession(agg, "ETH")

	first, ok := s.SelectWindow(context.Background(), entity.Window24H)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	points = 0
	_, ok = s.SelectWindow(ctx, entity.Window1W)
	assert.False(t, ok, "canceled run without data must not be published")

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, first.RunID, cur.RunID)
	assert.Len(t, cur.Result.Series, 4)

	// 一部でも取得できていれば部分的な結果として公開する
	points = 2
	snap, ok := s.SelectWindow(ctx, entity.Window1W)
	require.True(t, ok)
	assert.True(t, snap.Result.Partial)
	assert.Len(t, snap.Result.Series, 2)
}

// TestChartSession_SupersededRunIsDiscarded は後から開始した実行が先行する実行を無効化することを検証します。
func TestChartSession_SupersededRunIsDiscarded(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var firstCtxErr atomic.Value

	agg := &mockChartAggregator{
		AggregateFunc: func(ctx context.Context, symbol string, window entity.TimeWindow, maxPoints int, now time.Time) entity.AggregationResult {
			if window == entity.Window1Y {
				close(started)
				<-release
				if err := ctx.Err(); err != nil {
					firstCtxErr.Store(err)
				}
				return resultWith(symbol, window, 10)
			}
			return resultWith(symbol, window, 2)
		},
	}
	s := usecase.NewChartSession(agg, "ETH")

	first := s.Start(context.Background(), entity.Window1Y)
	<-started

	second, ok := s.SelectWindow(context.Background(), entity.Window1W)
	require.True(t, ok)
	assert.Equal(t, uint64(2), second.RunID)

	close(release)
	_, delivered := <-first
	assert.False(t, delivered, "stale run must close its channel without a value")
	assert.Equal(t, context.Canceled, firstCtxErr.Load(), "superseded run must observe cancellation")

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, uint64(2), cur.RunID)
	assert.Equal(t, entity.Window1W, cur.Result.Window)
	assert.Len(t, cur.Result.Series, 2)
}

// TestChartSession_RunIDsAreMonotonic は実行IDが単調増加し、公開されるのは最後の実行のみであることを検証します。
func TestChartSession_RunIDsAreMonotonic(t *testing.T) {
	t.Parallel()

	agg := &mockChartAggregator{
		AggregateFunc: func(ctx context.Context, symbol string, window entity.TimeWindow, maxPoints int, now time.Time) entity.AggregationResult {
			time.Sleep(time.Millisecond)
			return resultWith(symbol, window, 1)
		},
	}
	s := usecase.NewChartSession(agg, "BTC")

	const runs = 20
	var wg sync.WaitGroup
	chans := make([]<-chan usecase.Snapshot, 0, runs)
	for i := range runs {
		chans = append(chans, s.Start(context.Background(), entity.Windows[i%len(entity.Windows)]))
	}

	var delivered []uint64
	var mu sync.Mutex
	for _, ch := range chans {
		wg.Add(1)
		go func(ch <-chan usecase.Snapshot) {
			defer wg.Done()
			if snap, ok := <-ch; ok {
				mu.Lock()
				delivered = append(delivered, snap.RunID)
				mu.Unlock()
			}
		}(ch)
	}
	wg.Wait()

	cur, ok := s.Current()
	require.True(t, ok)
	require.NotEmpty(t, delivered)
	for _, id := range delivered {
		assert.LessOrEqual(t, id, cur.RunID)
	}
	assert.Contains(t, delivered, cur.RunID)
}

// TestChartSession_Refresh は現在の時間窓で再集計されることを検証します。
func TestChartSession_Refresh(t *testing.T) {
	t.Parallel()

	var windows []entity.TimeWindow
	agg := &mockChartAggregator{
		AggregateFunc: func(ctx context.Context, symbol string, window entity.TimeWindow, maxPoints int, now time.Time) entity.AggregationResult {
			windows = append(windows, window)
			return resultWith(symbol, window, 1)
		},
	}
	s := usecase.NewChartSession(agg, "SOL")

	_, ok := s.SelectWindow(context.Background(), entity.Window6M)
	require.True(t, ok)
	snap, ok := s.Refresh(context.Background())
	require.True(t, ok)

	assert.Equal(t, []entity.TimeWindow{entity.Window6M, entity.Window6M}, windows)
	assert.Equal(t, uint64(2), snap.RunID)
}

// TestChartSession_PublishHook は公開のたびにフックが呼ばれることを検証します。
func TestChartSession_PublishHook(t *testing.T) {
	t.Parallel()

	var hooked []usecase.Snapshot
	agg := &mockChartAggregator{
		AggregateFunc: func(ctx context.Context, symbol string, window entity.TimeWindow, maxPoints int, now time.Time) entity.AggregationResult {
			return resultWith(symbol, window, 0)
		},
	}
	s := usecase.NewChartSession(agg, "BTC", usecase.WithPublishHook(func(ctx context.Context, snap usecase.Snapshot) {
		hooked = append(hooked, snap)
	}))

	s.SelectWindow(context.Background(), entity.Window24H)
	s.SelectWindow(context.Background(), entity.Window1M)

	require.Len(t, hooked, 2)
	assert.Equal(t, uint64(1), hooked[0].RunID)
	assert.Equal(t, entity.Window1M, hooked[1].Result.Window)
}
