// Package usecase はヒストリカル価格データの集計ロジックを実装します。
package usecase

import (
	"time"

	"crypto_backend/internal/feature/klines/domain/entity"
)

// Resolve は時間窓と現在時刻から取得範囲とサンプリング間隔を決定します。
// 終了時刻は秒単位に切り捨てます。
func Resolve(window entity.TimeWindow, now time.Time) entity.ResolvedRange {
	return entity.ResolvedRange{
		Start:    now.Add(-window.Duration()),
		End:      now.Truncate(time.Second),
		Interval: window.Interval(),
	}
}
