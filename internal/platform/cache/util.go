package cache

import (
	"strings"
	"time"

	"crypto_backend/internal/feature/klines/domain/entity"
)

// ChunkClosed は end を含むローソク足が確定済み（now より1間隔以上前）かどうかを返します。
func ChunkClosed(end time.Time, interval entity.Interval, now time.Time) bool {
	return end.Before(now.Add(-interval.Duration()))
}

// BucketStart は t を含むバケットの開始時刻を返します。バケットはUnixエポックを起点に span ごとに区切ります。
func BucketStart(t time.Time, span time.Duration) time.Time {
	ms := t.UnixMilli()
	spanMs := span.Milliseconds()
	if spanMs <= 0 {
		return time.UnixMilli(ms).UTC()
	}
	offset := ms % spanMs
	if offset < 0 {
		offset += spanMs
	}
	return time.UnixMilli(ms - offset).UTC()
}

// within は OpenTime が [start, end] に含まれるデータのみを返します。
func within(points []entity.PricePoint, start, end time.Time) []entity.PricePoint {
	out := make([]entity.PricePoint, 0, len(points))
	for _, p := range points {
		if p.OpenTime.Before(start) || p.OpenTime.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
