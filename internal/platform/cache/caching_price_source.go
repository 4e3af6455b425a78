// Package cache provides caching decorators for price sources.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/redis/go-redis/v9"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
)

// CachingPriceSource decorates a PriceSource with Redis caching.
// Only successful fetches are cached; errors always reach the caller.
type CachingPriceSource struct {
	inner     usecase.PriceSource
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	now       func() time.Time
}

var (
	_ usecase.PriceSource      = (*CachingPriceSource)(nil)
	_ usecase.CacheInvalidator = (*CachingPriceSource)(nil)
)

// NewCachingPriceSource decorates inner with Redis caching.
// A non-positive ttl expires entries at the next daily refresh (see TimeUntilNextRefresh),
// computed when each entry is written. If namespace is empty, it uses "prices".
func NewCachingPriceSource(rdb *redis.Client, ttl time.Duration, inner usecase.PriceSource, namespace string) *CachingPriceSource {
	if ttl < 0 {
		ttl = 0
	}
	if namespace == "" {
		namespace = "prices"
	}
	return &CachingPriceSource{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		now:       time.Now,
	}
}

// cachedBar is the stored form of a bar. Missing prices are null since JSON has no NaN.
type cachedBar struct {
	Ticker   string     `json:"ticker"`
	Date     time.Time  `json:"date"`
	Open     null.Float `json:"open"`
	High     null.Float `json:"high"`
	Low      null.Float `json:"low"`
	Close    null.Float `json:"close"`
	AdjClose null.Float `json:"adj_close"`
	Volume   int64      `json:"volume"`
}

// Fetch returns cached bars for the exact (ticker, start, end) query or asks the inner source.
func (c *CachingPriceSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]entity.PriceBar, error) {
	if c.rdb == nil {
		return c.inner.Fetch(ctx, ticker, start, end)
	}

	key := c.cacheKey(ticker, start, end)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var cached []cachedBar
		if err := json.Unmarshal(b, &cached); err == nil {
			return fromCached(cached), nil
		}
		// corrupted entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.Fetch(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(toCached(out))
	if err != nil {
		slog.Debug("price cache encode failed", "key", key, "error", err)
		return out, nil
	}
	if err := c.rdb.Set(ctx, key, b, c.expiry()).Err(); err != nil {
		slog.Debug("price cache write failed", "key", key, "error", err)
	}
	return out, nil
}

// expiry is the TTL of an entry written now.
func (c *CachingPriceSource) expiry() time.Duration {
	if c.ttl > 0 {
		return c.ttl
	}
	return TimeUntilNextRefresh(c.now())
}

func toCached(bars []entity.PriceBar) []cachedBar {
	out := make([]cachedBar, len(bars))
	for i, b := range bars {
		out[i] = cachedBar{
			Ticker:   b.Ticker,
			Date:     b.Date,
			Open:     price(b.Open),
			High:     price(b.High),
			Low:      price(b.Low),
			Close:    price(b.Close),
			AdjClose: price(b.AdjClose),
			Volume:   b.Volume,
		}
	}
	return out
}

func fromCached(cached []cachedBar) []entity.PriceBar {
	out := make([]entity.PriceBar, len(cached))
	for i, b := range cached {
		out[i] = entity.PriceBar{
			Ticker:   b.Ticker,
			Date:     b.Date,
			Open:     priceFloat(b.Open),
			High:     priceFloat(b.High),
			Low:      priceFloat(b.Low),
			Close:    priceFloat(b.Close),
			AdjClose: priceFloat(b.AdjClose),
			Volume:   b.Volume,
		}
	}
	return out
}

func price(f float64) null.Float {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// Invalidate drops every cached range of ticker.
func (c *CachingPriceSource) Invalidate(ctx context.Context, ticker string) error {
	if c.rdb == nil {
		return nil
	}
	return c.deleteByPattern(ctx, c.cacheKeyPrefix(ticker)+"*")
}

func (c *CachingPriceSource) cacheKey(ticker string, start, end time.Time) string {
	return fmt.Sprintf("%s%s:%s",
		c.cacheKeyPrefix(ticker),
		start.UTC().Format(entity.DateLayout),
		end.UTC().Format(entity.DateLayout),
	)
}

func (c *CachingPriceSource) cacheKeyPrefix(ticker string) string {
	return fmt.Sprintf("%s:%s:", c.namespace, safe(entity.NormalizeTicker(ticker)))
}

// deleteByPattern deletes all keys matching pattern using SCAN.
func (c *CachingPriceSource) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			return nil
		}
	}
}

// safe escapes characters that are problematic in Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}

func priceFloat(n null.Float) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}
