package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/domain/repository"
	"github.com/seoul-location-services/internal/pkg/errors"
	"github.com/seoul-location-services/internal/pkg/metrics"
)

const (
	DefaultKeyPrefix    = "location"
	DefaultKeyPrecision = 4
	DefaultCacheTTL     = 300 * time.Second
	DefaultPartialTTL   = 30 * time.Second

	cacheOperation = "search"
)

// CacheLayerConfig configures key derivation and expiry.
type CacheLayerConfig struct {
	Enabled    bool
	TTL        time.Duration
	// PartialTTL applies to results assembled while some sources were down.
	PartialTTL time.Duration
	Precision  int
	KeyPrefix  string
}

// CacheLayer is a best-effort read-through cache for search results. Backend
// failures are logged and reported as misses; nothing is returned to callers.
type CacheLayer struct {
	backend   repository.CacheRepository
	enabled    bool
	ttl        time.Duration
	partialTTL time.Duration
	precision  int
	prefix    string
	logger    *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCacheLayer probes the backend once. A nil or unreachable backend puts the
// layer into permanent-miss mode for the life of the process.
func NewCacheLayer(ctx context.Context, backend repository.CacheRepository, cfg CacheLayerConfig, logger *zap.Logger) *CacheLayer {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.PartialTTL <= 0 {
		cfg.PartialTTL = DefaultPartialTTL
	}
	if cfg.PartialTTL > cfg.TTL {
		cfg.PartialTTL = cfg.TTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Precision < 0 {
		cfg.Precision = DefaultKeyPrecision
	}

	c := &CacheLayer{
		backend:    backend,
		enabled:    cfg.Enabled && backend != nil,
		ttl:        cfg.TTL,
		partialTTL: cfg.PartialTTL,
		precision:  cfg.Precision,
		prefix:     cfg.KeyPrefix,
		logger:     logger,
	}

	if c.enabled {
		if err := backend.Health(ctx); err != nil {
			logger.Warn("Cache backend unreachable, running without cache", zap.Error(err))
			c.enabled = false
		}
	}

	logger.Info("Cache layer initialized",
		zap.Bool("enabled", c.enabled),
		zap.Duration("ttl", c.ttl),
		zap.Int("precision", c.precision))

	return c
}

// RoundCoordinate rounds half away from zero to precision decimals.
func RoundCoordinate(value float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	r := math.Round(value*scale) / scale
	if r == 0 {
		// -0 печатается как "-0" и дал бы отдельный ключ
		return 0
	}
	return r
}

// GenerateKey builds "location:{lat}:{lon}:{radius}[:{category}]" from the rounded
// center. Centers inside one rounding bucket share a key.
func GenerateKey(lat, lon float64, radiusMeters int, category string, precision int) string {
	return generateKey(DefaultKeyPrefix, lat, lon, radiusMeters, category, precision)
}

func generateKey(prefix string, lat, lon float64, radiusMeters int, category string, precision int) string {
	parts := []string{
		prefix,
		strconv.FormatFloat(RoundCoordinate(lat, precision), 'f', -1, 64),
		strconv.FormatFloat(RoundCoordinate(lon, precision), 'f', -1, 64),
		strconv.Itoa(radiusMeters),
	}
	if category != "" {
		parts = append(parts, category)
	}
	return strings.Join(parts, ":")
}

// Key derives the cache key of a query.
func (c *CacheLayer) Key(q domain.SearchQuery) string {
	return generateKey(c.prefix, q.Center.Latitude, q.Center.Longitude, q.RadiusMeters, q.CategoryName(), c.precision)
}

func (c *CacheLayer) Enabled() bool {
	return c.enabled
}

// Prefix is the namespace every key starts with.
func (c *CacheLayer) Prefix() string {
	return c.prefix
}

func (c *CacheLayer) TTL() time.Duration {
	return c.ttl
}

// PartialTTL is the expiry of results missing some sources.
func (c *CacheLayer) PartialTTL() time.Duration {
	return c.partialTTL
}

// Health probes the backend. Disabled mode always reports ErrCacheUnavailable.
func (c *CacheLayer) Health(ctx context.Context) error {
	if !c.enabled {
		return errors.ErrCacheUnavailable
	}
	if err := c.backend.Health(ctx); err != nil {
		return errors.ErrCacheUnavailable.WithCause(err)
	}
	return nil
}

// Get returns the cached records for key. ok is false on a miss, on a backend
// failure and in disabled mode.
func (c *CacheLayer) Get(ctx context.Context, key string) ([]domain.CandidateRecord, bool) {
	if !c.enabled {
		return nil, false
	}

	data, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Error("Cache get failed", zap.String("key", key), zap.Error(err))
		metrics.CacheErrors.WithLabelValues("get").Inc()
		c.miss()
		return nil, false
	}
	if data == nil {
		c.logger.Debug("Cache MISS", zap.String("key", key))
		c.miss()
		return nil, false
	}

	var records []domain.CandidateRecord
	if err := json.Unmarshal(data, &records); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		c.Invalidate(ctx, key)
		c.miss()
		return nil, false
	}

	c.logger.Debug("Cache HIT", zap.String("key", key), zap.Int("records", len(records)))
	c.hits.Add(1)
	metrics.CacheHits.WithLabelValues(cacheOperation).Inc()
	return records, true
}

// Set stores records under key. A non-positive ttl uses the configured default.
func (c *CacheLayer) Set(ctx context.Context, key string, records []domain.CandidateRecord, ttl time.Duration) bool {
	if !c.enabled {
		return false
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if records == nil {
		records = []domain.CandidateRecord{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		c.logger.Error("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return false
	}

	if err := c.backend.Set(ctx, key, data, ttl); err != nil {
		c.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		metrics.CacheErrors.WithLabelValues("set").Inc()
		return false
	}

	c.logger.Debug("Cache SET", zap.String("key", key), zap.Duration("ttl", ttl), zap.Int("records", len(records)))
	return true
}

// Invalidate deletes one key and reports whether it existed.
func (c *CacheLayer) Invalidate(ctx context.Context, key string) bool {
	if !c.enabled {
		return false
	}

	deleted, err := c.backend.Delete(ctx, key)
	if err != nil {
		c.logger.Error("Cache delete failed", zap.String("key", key), zap.Error(err))
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		return false
	}
	if deleted {
		metrics.CacheInvalidated.Inc()
	}
	c.logger.Debug("Cache DELETE", zap.String("key", key), zap.Bool("existed", deleted))
	return deleted
}

// InvalidatePattern deletes every key matching a glob pattern and returns the count.
func (c *CacheLayer) InvalidatePattern(ctx context.Context, pattern string) int {
	if !c.enabled {
		return 0
	}

	count, err := c.backend.DeleteMatching(ctx, pattern)
	if err != nil {
		c.logger.Error("Cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
		metrics.CacheErrors.WithLabelValues("delete_pattern").Inc()
		return count
	}

	metrics.CacheInvalidated.Add(float64(count))
	c.logger.Info("Cache pattern invalidated", zap.String("pattern", pattern), zap.Int("deleted", count))
	return count
}

// InvalidateKind drops the entries of one kind plus every cross-kind entry,
// since those also hold records of that kind. An empty kind drops everything.
func (c *CacheLayer) InvalidateKind(ctx context.Context, kind domain.SourceKind) int {
	if kind == "" {
		return c.InvalidatePattern(ctx, c.AllKeysPattern())
	}
	// category-less keys end with the radius; kind names contain no digits
	return c.InvalidatePattern(ctx, fmt.Sprintf("%s:*:%s", c.prefix, kind)) +
		c.InvalidatePattern(ctx, fmt.Sprintf("%s:*[0-9]", c.prefix))
}

// AllKeysPattern matches every key this layer writes.
func (c *CacheLayer) AllKeysPattern() string {
	return c.prefix + ":*"
}

// Stats reports hits and misses since start. Disabled mode counts nothing.
func (c *CacheLayer) Stats() domain.CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var rate float64
	if total := hits + misses; total > 0 {
		rate = math.Round(float64(hits)/float64(total)*10000) / 100
	}

	return domain.CacheStats{
		Enabled:        c.enabled,
		Hits:           hits,
		Misses:         misses,
		HitRatePercent: rate,
	}
}

func (c *CacheLayer) miss() {
	c.misses.Add(1)
	metrics.CacheMisses.WithLabelValues(cacheOperation).Inc()
}
