// Package cache provides the reconciled-series cache: Redis when
// configured, with an in-process LRU fallback so a Redis outage degrades to
// recomputation instead of failure.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/labseries-server/internal/domain"
)

// cachedSeries is the stored envelope. ExpiresAt duplicates the Redis TTL so
// a stale entry read through the LRU fallback is still detected.
type cachedSeries struct {
	Points    []domain.ChartDataPoint `json:"points"`
	CachedAt  time.Time               `json:"cached_at"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// SeriesCache implements domain.SeriesCache over Redis with a local
// expirable LRU. Every miss or backend error reads as a miss; the caller
// always recomputes from persisted data.
type SeriesCache struct {
	redis   *redis.Client
	breaker *gobreaker.CircuitBreaker
	local   *expirable.LRU[string, cachedSeries]
	ttl     time.Duration
	log     *logrus.Logger
}

// NewSeriesCache creates a series cache. With an empty Redis URL the cache
// runs on the local LRU alone.
func NewSeriesCache(config domain.CacheConfig, logger *logrus.Logger) (*SeriesCache, error) {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	lruSize := config.LRUSize
	if lruSize <= 0 {
		lruSize = 1024
	}

	c := &SeriesCache{
		local: expirable.NewLRU[string, cachedSeries](lruSize, nil, ttl),
		ttl:   ttl,
		log:   logger,
	}

	if config.RedisURL == "" {
		logger.Info("Series cache running without Redis, local LRU only")
		return c, nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}
	c.redis = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "series-cache",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Cache circuit breaker state changed")
		},
	})

	logger.Info("Series cache connected to Redis")
	return c, nil
}

// Get returns the cached points for a subject and metric, or a miss.
func (c *SeriesCache) Get(ctx context.Context, subjectID, metric string) ([]domain.ChartDataPoint, bool) {
	key := seriesKey(subjectID, metric)

	if c.redis != nil {
		result, err := c.breaker.Execute(func() (any, error) {
			return c.redis.Get(ctx, key).Result()
		})
		if err == nil {
			var cached cachedSeries
			if jsonErr := json.Unmarshal([]byte(result.(string)), &cached); jsonErr != nil {
				// Corrupted entry, drop it.
				c.redis.Del(ctx, key)
			} else if time.Now().Before(cached.ExpiresAt) {
				return cached.Points, true
			}
		} else if err != redis.Nil {
			c.log.WithError(err).WithField("key", key).Debug("Redis get failed, trying local cache")
		}
	}

	if cached, ok := c.local.Get(key); ok && time.Now().Before(cached.ExpiresAt) {
		return cached.Points, true
	}
	return nil, false
}

// Set stores the points in both backends. Failures are logged and ignored.
func (c *SeriesCache) Set(ctx context.Context, subjectID, metric string, points []domain.ChartDataPoint) {
	key := seriesKey(subjectID, metric)
	cached := cachedSeries{
		Points:    points,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(c.ttl),
	}
	c.local.Add(key, cached)

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(cached)
	if err != nil {
		c.log.WithError(err).Warn("Failed to marshal cached series")
		return
	}
	if _, err := c.breaker.Execute(func() (any, error) {
		return nil, c.redis.Set(ctx, key, data, c.ttl).Err()
	}); err != nil {
		c.log.WithError(err).WithField("key", key).Debug("Redis set failed")
	}
}

// Invalidate drops cached series for the given metrics, or for every metric
// of the subject when none are named.
func (c *SeriesCache) Invalidate(ctx context.Context, subjectID string, metrics ...string) {
	if len(metrics) == 0 {
		c.invalidatePattern(ctx, subjectID)
		return
	}

	keys := make([]string, 0, len(metrics))
	for _, metric := range metrics {
		key := seriesKey(subjectID, metric)
		c.local.Remove(key)
		keys = append(keys, key)
	}

	if c.redis == nil {
		return
	}
	if _, err := c.breaker.Execute(func() (any, error) {
		return nil, c.redis.Del(ctx, keys...).Err()
	}); err != nil {
		c.log.WithError(err).WithField("subject_id", subjectID).Debug("Redis invalidate failed")
	}
}

func (c *SeriesCache) invalidatePattern(ctx context.Context, subjectID string) {
	c.local.Purge()

	if c.redis == nil {
		return
	}
	pattern := fmt.Sprintf("series:%s:*", subjectID)
	if _, err := c.breaker.Execute(func() (any, error) {
		keys, err := c.redis.Keys(ctx, pattern).Result()
		if err != nil || len(keys) == 0 {
			return nil, err
		}
		return nil, c.redis.Del(ctx, keys...).Err()
	}); err != nil {
		c.log.WithError(err).WithField("subject_id", subjectID).Debug("Redis pattern invalidate failed")
	}
}

// Ping checks the Redis connection. A local-only cache is always healthy.
func (c *SeriesCache) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (c *SeriesCache) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

func seriesKey(subjectID, metric string) string {
	return fmt.Sprintf("series:%s:%s", subjectID, metric)
}
