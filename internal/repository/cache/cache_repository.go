package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain/repository"
)

// scanBatch bounds both SCAN COUNT and the size of one UNLINK.
const scanBatch = 500

type cacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

func NewCacheRepository(redis *Redis) repository.CacheRepository {
	return &cacheRepository{
		client: redis.Client(),
		logger: redis.logger,
	}
}

func (r *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	return val, nil
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("cache delete error: %w", err)
	}
	return n > 0, nil
}

// DeleteMatching walks the keyspace with SCAN so large databases are never
// blocked by KEYS. Keys written during the walk may survive.
func (r *cacheRepository) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	deleted := 0
	batch := make([]string, 0, scanBatch)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("cache unlink error: %w", err)
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache scan error: %w", err)
	}
	if err := flush(); err != nil {
		return deleted, err
	}

	r.logger.Debug("Cache keys deleted", zap.String("pattern", pattern), zap.Int("count", deleted))
	return deleted, nil
}

func (r *cacheRepository) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
