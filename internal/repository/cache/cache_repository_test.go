package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/config"
	"github.com/seoul-location-services/internal/domain/repository"
	"github.com/seoul-location-services/internal/repository/cache"
)

var testRedisConfig = config.RedisConfig{Host: "localhost", Port: 6379, DB: 2}

// backends returns every driver reachable on localhost; unreachable ones are skipped.
func backends(t *testing.T) map[string]repository.CacheRepository {
	t.Helper()
	out := map[string]repository.CacheRepository{}

	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379", DB: testRedisConfig.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		_ = client.Close()
	})
	out["redis"] = cache.NewCacheRepository(cache.NewRedisFromClient(client, zap.NewNop()))

	if v, err := cache.NewValkey(&testRedisConfig, zap.NewNop()); err == nil {
		t.Cleanup(v.Close)
		out["valkey"] = v
	}
	return out
}

func TestCacheRepository_Contract(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			prefix := "test:" + name

			require.NoError(t, repo.Health(ctx))

			val, err := repo.Get(ctx, prefix+":missing")
			require.NoError(t, err)
			assert.Nil(t, val)

			require.NoError(t, repo.Set(ctx, prefix+":k", []byte(`[{"a":1}]`), time.Minute))
			val, err = repo.Get(ctx, prefix+":k")
			require.NoError(t, err)
			assert.Equal(t, []byte(`[{"a":1}]`), val)

			existed, err := repo.Delete(ctx, prefix+":k")
			require.NoError(t, err)
			assert.True(t, existed)

			existed, err = repo.Delete(ctx, prefix+":k")
			require.NoError(t, err)
			assert.False(t, existed)
		})
	}
}

func TestCacheRepository_Expiry(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "test:" + name + ":ttl"

			require.NoError(t, repo.Set(ctx, key, []byte("x"), 100*time.Millisecond))
			assert.Eventually(t, func() bool {
				val, err := repo.Get(ctx, key)
				return err == nil && val == nil
			}, 2*time.Second, 50*time.Millisecond)
		})
	}
}

func TestCacheRepository_DeleteMatching(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			prefix := "test" + name

			for i := 0; i < 700; i++ {
				require.NoError(t, repo.Set(ctx, fmt.Sprintf("%s:37.%d:127:1000:libraries", prefix, i), []byte("[]"), time.Minute))
			}
			require.NoError(t, repo.Set(ctx, prefix+":37.5:127:1000:cultural_events", []byte("[]"), time.Minute))
			require.NoError(t, repo.Set(ctx, prefix+":37.5:127:1000", []byte("[]"), time.Minute))

			n, err := repo.DeleteMatching(ctx, prefix+":*:libraries")
			require.NoError(t, err)
			assert.Equal(t, 700, n)

			n, err = repo.DeleteMatching(ctx, prefix+":*[0-9]")
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			val, err := repo.Get(ctx, prefix+":37.5:127:1000:cultural_events")
			require.NoError(t, err)
			assert.NotNil(t, val)

			n, err = repo.DeleteMatching(ctx, prefix+":nothing:*")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}
