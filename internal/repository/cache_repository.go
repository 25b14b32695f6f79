package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

// CacheRepository wraps Redis for JSON payload caching and fixed-window counters.
// A nil client turns every call into a miss or a no-op.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Enabled reports whether a Redis client is configured.
func (r *CacheRepository) Enabled() bool {
	return r != nil && r.client != nil
}

// Get retrieves and unmarshals the cached value into dest. Missing keys yield ErrCacheMiss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if !r.Enabled() {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !r.Enabled() {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern removes cached entries matching pattern in batches.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if !r.Enabled() {
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, 200).Iterator()
	batch := make([]string, 0, 200)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", pattern, err)
		}
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	return flush()
}

// IncrWindow increments the counter for key and starts its window on first use. It returns the
// count inside the current window.
func (r *CacheRepository) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if !r.Enabled() {
		return 0, appErrors.ErrCacheMiss
	}
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr window %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Close()
}
