package usecase

import (
	"context"
	"log/slog"
	"strings"

	"crypto_backend/internal/feature/klines/domain/entity"
)

// WarmupJob は設定された銘柄・時間窓のチャートを定期的に集計し、スナップショットとして保存します。
// 銘柄ごとに ChartSession を保持し、公開された結果のみを保存します。
type WarmupJob struct {
	symbols   []string
	windows   []entity.TimeWindow
	sessions  map[string]*ChartSession
	snapshots SnapshotRepository
}

// NewWarmupJob は新しい WarmupJob を作成します。windows が空の場合は全時間窓を対象にします。
func NewWarmupJob(agg ChartAggregator, snapshots SnapshotRepository, symbols []string, windows []entity.TimeWindow, opts ...SessionOption) *WarmupJob {
	if len(windows) == 0 {
		windows = entity.Windows
	}
	j := &WarmupJob{
		windows:   windows,
		sessions:  make(map[string]*ChartSession, len(symbols)),
		snapshots: snapshots,
	}

	sessionOpts := append(append([]SessionOption{}, opts...), WithPublishHook(j.save))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := j.sessions[s]; ok {
			continue
		}
		j.symbols = append(j.symbols, s)
		j.sessions[s] = NewChartSession(agg, s, sessionOpts...)
	}
	return j
}

// Run は全銘柄・全時間窓の集計を1回実行します。
// 個々の失敗はログに出力して処理を継続し、キャンセルされた場合のみ ctx.Err() を返します。
func (j *WarmupJob) Run(ctx context.Context) error {
	published := 0
	for _, s := range j.symbols {
		session := j.sessions[s]
		for _, w := range j.windows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, ok := session.SelectWindow(ctx, w); ok {
				published++
			}
		}
	}
	slog.Info("warmup finished", "symbols", len(j.symbols), "windows", len(j.windows), "published", published)
	return nil
}

// Session は銘柄のセッションを返します。
func (j *WarmupJob) Session(symbol string) (*ChartSession, bool) {
	s, ok := j.sessions[strings.ToUpper(symbol)]
	return s, ok
}

// save は公開された結果をスナップショットとして保存します。空の系列は保存しません。
func (j *WarmupJob) save(ctx context.Context, snap Snapshot) {
	if j.snapshots == nil || snap.Result.Empty() {
		return
	}
	if err := j.snapshots.Save(ctx, snap.Result); err != nil {
		// 保存に失敗しても次の時間窓の処理を続ける
		slog.Error("failed to save snapshot",
			"symbol", snap.Result.Symbol,
			"window", snap.Result.Window,
			"error", err,
		)
	}
}
