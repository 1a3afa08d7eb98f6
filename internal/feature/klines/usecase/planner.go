package usecase

import (
	"iter"
	"time"

	"crypto_backend/internal/feature/klines/domain/entity"
)

// chunkGap はチャンク同士が重ならないよう終端から差し引く最小時間単位です（上流APIはミリ秒精度）。
const chunkGap = time.Millisecond

// Plan は取得範囲を、1リクエストあたり maxPointsPerRequest 件以下に収まるチャンク列に分割します。
// 最後のチャンクの終端は範囲の終了時刻に丸められます。
func Plan(r entity.ResolvedRange, maxPointsPerRequest int) []entity.Chunk {
	var chunks []entity.Chunk
	for c := range PlanSeq(r, maxPointsPerRequest) {
		chunks = append(chunks, c)
	}
	return chunks
}

// PlanSeq は Plan と同じチャンク列を遅延評価で返します。
// 内部状態を持たないため、何度でも繰り返し走査できます。
func PlanSeq(r entity.ResolvedRange, maxPointsPerRequest int) iter.Seq[entity.Chunk] {
	return func(yield func(entity.Chunk) bool) {
		if maxPointsPerRequest <= 0 || !r.Start.Before(r.End) {
			return
		}
		span := time.Duration(maxPointsPerRequest) * r.Interval.Duration()
		width := r.End.Sub(r.Start)
		n := int((width + span - 1) / span)

		for i := range n {
			start := r.Start.Add(time.Duration(i) * span)
			end := start.Add(span - chunkGap)
			if end.After(r.End) {
				end = r.End
			}
			if !yield(entity.Chunk{Start: start, End: end}) {
				return
			}
		}
	}
}
