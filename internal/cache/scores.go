// Package cache provides an optional Redis read-through cache for
// current deal scores. All methods are safe on a nil receiver so the
// engine never has to branch on whether caching is configured.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog"

	"github.com/pipeboard/dealpulse/pkg/models"
)

const keyPrefix = "dealpulse:score:"

// ScoreCache caches the most recent ScoreResult per deal.
type ScoreCache struct {
	log  zerolog.Logger
	pool *redis.Pool
	ttl  time.Duration
}

// New creates a score cache backed by the Redis at addr. Returns nil when
// addr is empty, which disables caching entirely.
func New(addr string, ttl time.Duration, log zerolog.Logger) *ScoreCache {
	if addr == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	pool := &redis.Pool{
		MaxIdle:     8,
		MaxActive:   32,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &ScoreCache{
		pool: pool,
		ttl:  ttl,
		log:  log.With().Str("component", "score-cache").Logger(),
	}
}

// Get returns the cached score for a deal, or nil on miss. Redis errors
// degrade to a miss; the cache is never allowed to fail a read path.
func (c *ScoreCache) Get(ctx context.Context, dealID int64) *models.ScoreResult {
	if c == nil {
		return nil
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("cache unavailable")
		return nil
	}
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", key(dealID)))
	if err != nil {
		if err != redis.ErrNil {
			c.log.Debug().Err(err).Int64("deal_id", dealID).Msg("cache get failed")
		}
		return nil
	}

	var result models.ScoreResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

// Set stores a deal's score with the configured TTL.
func (c *ScoreCache) Set(ctx context.Context, dealID int64, result *models.ScoreResult) {
	if c == nil || result == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return
	}
	defer conn.Close()

	if _, err := conn.Do("SET", key(dealID), data, "PX", c.ttl.Milliseconds()); err != nil {
		c.log.Debug().Err(err).Int64("deal_id", dealID).Msg("cache set failed")
	}
}

// Invalidate drops a deal's cached score after recalculation.
func (c *ScoreCache) Invalidate(ctx context.Context, dealID int64) {
	if c == nil {
		return
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", key(dealID)); err != nil {
		c.log.Debug().Err(err).Int64("deal_id", dealID).Msg("cache invalidate failed")
	}
}

// Close releases the underlying pool.
func (c *ScoreCache) Close() error {
	if c == nil {
		return nil
	}
	return c.pool.Close()
}

func key(dealID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, dealID)
}
