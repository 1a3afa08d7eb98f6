package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"crypto_backend/internal/feature/klines/domain/entity"
)

// ChartAggregator はチャート用の系列を集計するインターフェースです。
type ChartAggregator interface {
	Aggregate(ctx context.Context, symbol string, window entity.TimeWindow, maxPointsPerRequest int, now time.Time) entity.AggregationResult
}

// Snapshot は公開済みの集計結果と、それを生成した実行IDです。
type Snapshot struct {
	RunID  uint64
	Result entity.AggregationResult
}

// PublishHook は集計結果が公開されるたびに呼ばれます。
type PublishHook func(ctx context.Context, snap Snapshot)

// SessionOption は ChartSession の設定を変更します。
type SessionOption func(*ChartSession)

// WithClock は現在時刻の取得方法を差し替えます。
func WithClock(clock func() time.Time) SessionOption {
	return func(s *ChartSession) { s.clock = clock }
}

// WithMaxPoints は1リクエストあたりの最大件数を指定します。
func WithMaxPoints(n int) SessionOption {
	return func(s *ChartSession) { s.maxPoints = n }
}

// WithPublishHook は公開時のフックを登録します。
func WithPublishHook(h PublishHook) SessionOption {
	return func(s *ChartSession) { s.onPublish = h }
}

// ChartSession は1銘柄のチャート表示状態を管理します。
//
// 時間窓の変更やリフレッシュのたびに単調増加する実行IDを採番し、実行中の古い処理をキャンセルします。
// 古い実行IDの結果は公開されません。公開はポインタの差し替えで行うため、
// 読み手が構築途中の系列を目にすることはありません。
type ChartSession struct {
	agg       ChartAggregator
	symbol    string
	maxPoints int
	clock     func() time.Time
	onPublish PublishHook

	mu     sync.Mutex
	latest uint64
	window entity.TimeWindow
	cancel context.CancelFunc

	published atomic.Pointer[Snapshot]
}

// NewChartSession は新しい ChartSession を作成します。初期の時間窓は24Hです。
func NewChartSession(agg ChartAggregator, symbol string, opts ...SessionOption) *ChartSession {
	s := &ChartSession{
		agg:    agg,
		symbol: symbol,
		clock:  time.Now,
		window: entity.Window24H,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Symbol はセッションの対象銘柄を返します。
func (s *ChartSession) Symbol() string { return s.symbol }

// Window は最後に選択された時間窓を返します。
func (s *ChartSession) Window() entity.TimeWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

// SelectWindow は時間窓を切り替えて新しい集計を実行します。
// 実行完了時点で自身が最新の実行であれば結果を公開し、true を返します。
func (s *ChartSession) SelectWindow(ctx context.Context, window entity.TimeWindow) (Snapshot, bool) {
	window = entity.ParseTimeWindow(string(window))
	runID, runCtx, release := s.begin(ctx, window)
	defer release()

	result := s.agg.Aggregate(runCtx, s.symbol, window, s.maxPoints, s.clock())

	// 呼び出し元がキャンセルした実行で何も取得できなかった場合は、公開済みの系列を残す
	if ctx.Err() != nil && result.Empty() {
		slog.Debug("discarding canceled chart run",
			"symbol", s.symbol,
			"run_id", runID,
			"error", ctx.Err(),
		)
		return Snapshot{}, false
	}
	return s.publish(runCtx, runID, result)
}

// Refresh は現在の時間窓で集計をやり直します。
func (s *ChartSession) Refresh(ctx context.Context) (Snapshot, bool) {
	return s.SelectWindow(ctx, s.Window())
}

// Start は SelectWindow をバックグラウンドで実行し、完了を通知するチャネルを返します。
// 古い実行として破棄された場合、チャネルは値を送らずにクローズされます。
func (s *ChartSession) Start(ctx context.Context, window entity.TimeWindow) <-chan Snapshot {
	done := make(chan Snapshot, 1)
	go func() {
		defer close(done)
		if snap, ok := s.SelectWindow(ctx, window); ok {
			done <- snap
		}
	}()
	return done
}

// Current は最後に公開されたスナップショットを返します。系列は呼び出し元専用のコピーです。
func (s *ChartSession) Current() (Snapshot, bool) {
	p := s.published.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return p.clone(), true
}

// clone は系列と失敗チャンクを複製したスナップショットを返します。
func (snap Snapshot) clone() Snapshot {
	snap.Result.Series = snap.Result.Points()
	if snap.Result.FailedChunks != nil {
		snap.Result.FailedChunks = append([]entity.Chunk(nil), snap.Result.FailedChunks...)
	}
	return snap
}

// begin は新しい実行IDを採番し、実行中の古い処理をキャンセルします。
func (s *ChartSession) begin(ctx context.Context, window entity.TimeWindow) (uint64, context.Context, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.latest++
	runID := s.latest
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.window = window

	release := func() {
		cancel()
		s.mu.Lock()
		if s.latest == runID {
			s.cancel = nil
		}
		s.mu.Unlock()
	}
	return runID, runCtx, release
}

// publish は runID が最新の場合のみ結果を公開します。
// 公開した系列は共有しないため、フックと呼び出し元にはそれぞれ専用のコピーを渡します。
func (s *ChartSession) publish(ctx context.Context, runID uint64, result entity.AggregationResult) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runID != s.latest {
		slog.Debug("discarding stale chart run",
			"symbol", s.symbol,
			"run_id", runID,
			"latest_run_id", s.latest,
		)
		return Snapshot{}, false
	}

	snap := &Snapshot{RunID: runID, Result: result}
	s.published.Store(snap)
	if s.onPublish != nil {
		s.onPublish(ctx, snap.clone())
	}
	return snap.clone(), true
}
