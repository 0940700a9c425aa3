package usecase_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/usecase"
)

func enabledConfig() usecase.CacheLayerConfig {
	return usecase.CacheLayerConfig{Enabled: true, TTL: 300 * time.Second, Precision: 4, KeyPrefix: "location"}
}

func TestGenerateKey(t *testing.T) {
	t.Run("same bucket same key", func(t *testing.T) {
		a := usecase.GenerateKey(37.56651, 126.97801, 1000, "libraries", 4)
		b := usecase.GenerateKey(37.56652, 126.97802, 1000, "libraries", 4)
		assert.Equal(t, a, b)
		assert.Equal(t, "location:37.5665:126.978:1000:libraries", a)
	})

	t.Run("category omitted", func(t *testing.T) {
		assert.Equal(t, "location:37.5665:126.978:2000", usecase.GenerateKey(37.5665, 126.978, 2000, "", 4))
	})

	t.Run("radius and category separate keys", func(t *testing.T) {
		base := usecase.GenerateKey(37.5665, 126.978, 1000, "libraries", 4)
		assert.NotEqual(t, base, usecase.GenerateKey(37.5665, 126.978, 1500, "libraries", 4))
		assert.NotEqual(t, base, usecase.GenerateKey(37.5665, 126.978, 1000, "cultural_events", 4))
	})

	t.Run("neighbouring buckets differ", func(t *testing.T) {
		assert.NotEqual(t,
			usecase.GenerateKey(37.5665, 126.978, 1000, "", 4),
			usecase.GenerateKey(37.5667, 126.978, 1000, "", 4))
	})

	t.Run("negative zero shares the zero bucket", func(t *testing.T) {
		key := usecase.GenerateKey(0.00001, 0.00002, 1000, "", 4)
		assert.Equal(t, "location:0:0:1000", key)
		assert.Equal(t, key, usecase.GenerateKey(-0.00001, -0.00002, 1000, "", 4))
	})

	t.Run("precision is a knob", func(t *testing.T) {
		assert.Equal(t, "location:37.57:126.98:1000", usecase.GenerateKey(37.56651, 126.97801, 1000, "", 2))
	})
}

func TestRoundCoordinate(t *testing.T) {
	tests := []struct {
		value     float64
		precision int
		expected  float64
	}{
		{37.56651, 4, 37.5665},
		{37.56656, 4, 37.5666},
		{126.97801, 4, 126.978},
		{-33.86785, 3, -33.868},
		{37.5, 0, 38},
		{-0.00001, 4, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, usecase.RoundCoordinate(tt.value, tt.precision))
	}
	assert.False(t, math.Signbit(usecase.RoundCoordinate(-0.00001, 4)))
}

func TestCacheLayer_DisabledWhenBackendUnreachable(t *testing.T) {
	backend := &MockCacheRepository{}
	backend.On("Health", mock.Anything).Return(errors.New("connection refused"))

	cache := usecase.NewCacheLayer(context.Background(), backend, enabledConfig(), zap.NewNop())
	ctx := context.Background()

	assert.False(t, cache.Enabled())

	records, ok := cache.Get(ctx, "location:37.5665:126.978:1000")
	assert.False(t, ok)
	assert.Nil(t, records)
	assert.False(t, cache.Set(ctx, "location:37.5665:126.978:1000", nil, 0))
	assert.False(t, cache.Invalidate(ctx, "location:37.5665:126.978:1000"))
	assert.Equal(t, 0, cache.InvalidatePattern(ctx, "location:*"))
	assert.Equal(t, domain.CacheStats{}, cache.Stats())
	assert.Error(t, cache.Health(ctx))

	backend.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	backend.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCacheLayer_DisabledByConfigOrNilBackend(t *testing.T) {
	cfg := enabledConfig()
	cfg.Enabled = false
	assert.False(t, usecase.NewCacheLayer(context.Background(), newMemoryCache(), cfg, zap.NewNop()).Enabled())
	assert.False(t, usecase.NewCacheLayer(context.Background(), nil, enabledConfig(), zap.NewNop()).Enabled())
}

func TestCacheLayer_RoundTripAndStats(t *testing.T) {
	backend := newMemoryCache()
	cache := usecase.NewCacheLayer(context.Background(), backend, enabledConfig(), zap.NewNop())
	ctx := context.Background()
	key := usecase.GenerateKey(37.5665, 126.978, 1000, "libraries", 4)

	_, ok := cache.Get(ctx, key)
	assert.False(t, ok)

	records := []domain.CandidateRecord{
		domain.NewCandidateRecord(domain.SourceLibraries, map[string]interface{}{"library_name": "서울도서관"}).
			WithDistance(120).WithFormattedDistance("120m"),
	}
	require.True(t, cache.Set(ctx, key, records, 0))
	assert.Equal(t, 300*time.Second, backend.ttls[key])

	got, ok := cache.Get(ctx, key)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, domain.SourceLibraries, got[0].Kind)
	assert.Equal(t, "서울도서관", got[0].Attr("library_name"))
	assert.Equal(t, 120.0, *got[0].DistanceMeters)

	assert.NoError(t, cache.Health(ctx))

	stats := cache.Stats()
	assert.True(t, stats.Enabled)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 50.0, stats.HitRatePercent)
}

func TestCacheLayer_EmptyResultIsCached(t *testing.T) {
	cache := usecase.NewCacheLayer(context.Background(), newMemoryCache(), enabledConfig(), zap.NewNop())
	ctx := context.Background()

	require.True(t, cache.Set(ctx, "location:0:0:100", nil, time.Minute))
	got, ok := cache.Get(ctx, "location:0:0:100")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestCacheLayer_BackendErrorsAreAbsorbed(t *testing.T) {
	backend := &MockCacheRepository{}
	backend.On("Health", mock.Anything).Return(nil)
	backend.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	backend.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("OOM"))
	backend.On("Delete", mock.Anything, mock.Anything).Return(false, errors.New("timeout"))
	backend.On("DeleteMatching", mock.Anything, mock.Anything).Return(0, errors.New("timeout"))

	cache := usecase.NewCacheLayer(context.Background(), backend, enabledConfig(), zap.NewNop())
	ctx := context.Background()
	require.True(t, cache.Enabled())

	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, cache.Set(ctx, "k", nil, 0))
	assert.False(t, cache.Invalidate(ctx, "k"))
	assert.Equal(t, 0, cache.InvalidatePattern(ctx, "location:*"))
	assert.Equal(t, int64(1), cache.Stats().Misses)
	assert.True(t, cache.Enabled(), "runtime failures do not disable the layer")
}

func TestCacheLayer_UndecodableEntryIsDropped(t *testing.T) {
	backend := newMemoryCache()
	cache := usecase.NewCacheLayer(context.Background(), backend, enabledConfig(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "location:1:1:100", []byte("not json"), time.Minute))

	_, ok := cache.Get(ctx, "location:1:1:100")
	assert.False(t, ok)
	assert.Empty(t, backend.keys())
}

func TestCacheLayer_InvalidateKind(t *testing.T) {
	backend := newMemoryCache()
	cache := usecase.NewCacheLayer(context.Background(), backend, enabledConfig(), zap.NewNop())
	ctx := context.Background()

	keys := []string{
		"location:37.5665:126.978:1000:libraries",
		"location:37.5:127:2000:libraries",
		"location:37.5665:126.978:1000:cultural_events",
		"location:37.5665:126.978:1000",
		"location:37.1:127.1:500",
		"other:37.5665:126.978:1000",
	}
	for _, k := range keys {
		require.True(t, cache.Set(ctx, k, nil, 0))
	}

	assert.Equal(t, 4, cache.InvalidateKind(ctx, domain.SourceLibraries))

	remaining := backend.keys()
	sort.Strings(remaining)
	assert.Equal(t, []string{
		"location:37.5665:126.978:1000:cultural_events",
		"other:37.5665:126.978:1000",
	}, remaining)

	assert.Equal(t, 1, cache.InvalidateKind(ctx, ""))
	assert.Equal(t, []string{"other:37.5665:126.978:1000"}, backend.keys())
}

func TestCacheLayer_Key(t *testing.T) {
	cfg := enabledConfig()
	cfg.KeyPrefix = "svc"
	cfg.Precision = 3
	cache := usecase.NewCacheLayer(context.Background(), newMemoryCache(), cfg, zap.NewNop())

	kind := domain.SourceLibraries
	q := domain.SearchQuery{Center: domain.GeoPoint{Latitude: 37.56651, Longitude: 126.97801}, RadiusMeters: 1000, Category: &kind, Limit: 10}
	assert.Equal(t, "svc:37.567:126.978:1000:libraries", cache.Key(q))
	assert.Equal(t, "svc:*", cache.AllKeysPattern())
}
