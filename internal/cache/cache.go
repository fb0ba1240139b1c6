// Package cache is the read side for render status: the API serves
// progress polls from Redis instead of hitting the render service on every
// request. A miss is not an error, the caller falls back to a live status
// check.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clipforge/internal/metrics"
	"clipforge/pkg/models"
)

// Cache provides render status caching using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// SetRenderJob caches a render job snapshot
func (c *Cache) SetRenderJob(ctx context.Context, job *models.RenderJob, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal render job: %w", err)
	}

	key := fmt.Sprintf("render:%s", job.JobID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetRenderJob retrieves a render job snapshot from cache. A cache miss
// returns (nil, nil).
func (c *Cache) GetRenderJob(ctx context.Context, jobID string) (*models.RenderJob, error) {
	key := fmt.Sprintf("render:%s", jobID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.CacheMissesTotal.WithLabelValues("render").Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get render job from cache: %w", err)
	}

	var job models.RenderJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal render job: %w", err)
	}

	metrics.CacheHitsTotal.WithLabelValues("render").Inc()
	return &job, nil
}

// DeleteRenderJob removes a render job snapshot from cache
func (c *Cache) DeleteRenderJob(ctx context.Context, jobID string) error {
	key := fmt.Sprintf("render:%s", jobID)
	return c.client.Del(ctx, key).Err()
}

// SetRenderProgress caches just the progress fraction for quick polling
func (c *Cache) SetRenderProgress(ctx context.Context, jobID string, progress float64, ttl time.Duration) error {
	key := fmt.Sprintf("render:progress:%s", jobID)
	return c.client.Set(ctx, key, progress, ttl).Err()
}

// GetRenderProgress retrieves a cached progress fraction. A miss returns
// (0, false, nil).
func (c *Cache) GetRenderProgress(ctx context.Context, jobID string) (float64, bool, error) {
	key := fmt.Sprintf("render:progress:%s", jobID)
	progress, err := c.client.Get(ctx, key).Float64()
	if err != nil {
		if err == redis.Nil {
			metrics.CacheMissesTotal.WithLabelValues("render").Inc()
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get render progress from cache: %w", err)
	}
	metrics.CacheHitsTotal.WithLabelValues("render").Inc()
	return progress, true, nil
}

// IncrementStat increments a statistic counter
func (c *Cache) IncrementStat(ctx context.Context, stat string) error {
	key := fmt.Sprintf("stats:%s", stat)
	return c.client.Incr(ctx, key).Err()
}

// GetStat retrieves a statistic value. Unknown stats read as zero.
func (c *Cache) GetStat(ctx context.Context, stat string) (int64, error) {
	key := fmt.Sprintf("stats:%s", stat)
	value, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return value, err
}
