package usecase_test

import (
	"context"
	"errors"
	"math"
	"path"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/seoul-location-services/internal/domain"
)

var cityHall = domain.GeoPoint{Latitude: 37.5665, Longitude: 126.9780}

// metersNorth moves p north along its meridian.
func metersNorth(p domain.GeoPoint, meters float64) domain.GeoPoint {
	return domain.GeoPoint{
		Latitude:  p.Latitude + meters/(6371000*math.Pi/180),
		Longitude: p.Longitude,
	}
}

func library(name string, p domain.GeoPoint) domain.CandidateRecord {
	return domain.NewCandidateRecord("", map[string]interface{}{
		"library_name": name,
		"latitude":     p.Latitude,
		"longitude":    p.Longitude,
	})
}

func event(title string, p domain.GeoPoint) domain.CandidateRecord {
	return domain.NewCandidateRecord("", map[string]interface{}{
		"title": title,
		"lat":   p.Latitude,
		"lot":   p.Longitude,
	})
}

// MockSourceRepository is a mock of SourceRepository
type MockSourceRepository struct {
	mock.Mock
}

func (m *MockSourceRepository) Fetch(ctx context.Context, kind domain.SourceKind) ([]domain.CandidateRecord, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CandidateRecord), args.Error(1)
}

func (m *MockSourceRepository) Count(ctx context.Context, kind domain.SourceKind) (int, error) {
	args := m.Called(ctx, kind)
	return args.Int(0), args.Error(1)
}

// MockCacheRepository is a mock of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	args := m.Called(ctx, pattern)
	return args.Int(0), args.Error(1)
}

func (m *MockCacheRepository) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// memoryCache is an in-process CacheRepository with glob deletes.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	delete(c.data, key)
	return ok, nil
}

func (c *memoryCache) DeleteMatching(_ context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

func (c *memoryCache) Health(context.Context) error { return nil }

func (c *memoryCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.data))
	for k := range c.data {
		out = append(out, k)
	}
	return out
}

var errCoordinate = errors.New("not a projected pair")

// stubNormalizer passes geographic pairs through and maps a fake TM grid
// anchored at (200000, 450000) = City Hall.
type stubNormalizer struct {
	region domain.RegionBounds
}

func newStubNormalizer() stubNormalizer {
	return stubNormalizer{region: domain.RegionBounds{MinLat: 37, MaxLat: 38, MinLon: 126, MaxLon: 128}}
}

func (s stubNormalizer) SmartDetect(x, y float64) (domain.GeoPoint, error) {
	if x >= -180 && x <= 180 && y >= -90 && y <= 90 {
		return domain.GeoPoint{Latitude: y, Longitude: x}, nil
	}
	if x < 0 || y < 0 {
		return domain.GeoPoint{}, errCoordinate
	}
	return domain.GeoPoint{
		Latitude:  cityHall.Latitude + (y-450000)/111195,
		Longitude: cityHall.Longitude + (x-200000)/88200,
	}, nil
}

func (s stubNormalizer) ValidateGeographic(lat, lon float64, strict bool) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return !strict || s.IsInRegion(lat, lon)
}

func (s stubNormalizer) IsInRegion(lat, lon float64) bool {
	return s.region.Contains(lat, lon)
}
