// Package cache provides caching decorators for upstream fetchers.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crypto_backend/internal/feature/klines/domain/entity"
	"crypto_backend/internal/feature/klines/usecase"
)

// DefaultBucketPoints is the number of candles in one cached bucket.
// A bucket is fetched with a single upstream request, so it must not exceed the upstream limit.
const DefaultBucketPoints = usecase.DefaultMaxPointsPerRequest

// CachingKlineFetcher decorates a KlineFetcher with Redis caching.
//
// Requests are split into buckets of bucketPoints candles aligned to the Unix epoch, so
// overlapping requests made at different times share cache entries. Only closed buckets,
// whose last candle can no longer change, are cached. The open tail always goes to the
// inner fetcher.
type CachingKlineFetcher struct {
	inner        usecase.KlineFetcher
	rdb          *redis.Client
	ttl          time.Duration
	namespace    string
	bucketPoints int
	clock        func() time.Time
}

var _ usecase.KlineFetcher = (*CachingKlineFetcher)(nil)

// NewCachingKlineFetcher decorates a KlineFetcher with Redis caching.
// If ttl is 0, it defaults to 24 hours. If namespace is empty, it uses "klines".
// A nil rdb disables caching.
func NewCachingKlineFetcher(rdb *redis.Client, ttl time.Duration, inner usecase.KlineFetcher, namespace string) *CachingKlineFetcher {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if namespace == "" {
		namespace = "klines"
	}
	return &CachingKlineFetcher{
		inner:        inner,
		rdb:          rdb,
		ttl:          ttl,
		namespace:    namespace,
		bucketPoints: DefaultBucketPoints,
		clock:        time.Now,
	}
}

// FetchKlines returns candles in [start, end], serving closed buckets from the cache.
func (c *CachingKlineFetcher) FetchKlines(ctx context.Context, symbol string, start, end time.Time, interval entity.Interval) ([]entity.PricePoint, error) {
	span := time.Duration(c.bucketPoints) * interval.Duration()
	if c.rdb == nil || span <= 0 {
		return c.inner.FetchKlines(ctx, symbol, start, end, interval)
	}

	now := c.clock()

	var out []entity.PricePoint
	for bs := BucketStart(start, span); !bs.After(end); bs = bs.Add(span) {
		be := bs.Add(span - time.Millisecond)

		if !ChunkClosed(be, interval, now) {
			points, err := c.inner.FetchKlines(ctx, symbol, latest(start, bs), earliest(end, be), interval)
			if err != nil {
				return nil, err
			}
			out = append(out, points...)
			continue
		}

		points, err := c.fetchBucket(ctx, symbol, interval, bs, be)
		if err != nil {
			return nil, err
		}
		out = append(out, within(points, start, end)...)
	}
	return out, nil
}

// fetchBucket returns one closed bucket from the cache, filling it from upstream on a miss.
func (c *CachingKlineFetcher) fetchBucket(ctx context.Context, symbol string, interval entity.Interval, start, end time.Time) ([]entity.PricePoint, error) {
	key := c.cacheKey(symbol, interval, start, end)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.PricePoint
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to upstream
	out, err := c.inner.FetchKlines(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort). Empty buckets are not cached.
	if len(out) > 0 {
		if b, err := json.Marshal(out); err == nil {
			_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
		}
	}

	return out, nil
}

// cacheKey generates a cache key for one bucket.
func (c *CachingKlineFetcher) cacheKey(symbol string, interval entity.Interval, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d:%d",
		c.namespace,
		safe(symbol),
		safe(string(interval)),
		start.UnixMilli(),
		end.UnixMilli(),
	)
}
