package usecase

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/domain/repository"
	"github.com/seoul-location-services/internal/pkg/errors"
	"github.com/seoul-location-services/internal/pkg/geo"
	"github.com/seoul-location-services/internal/pkg/metrics"
	"github.com/seoul-location-services/internal/pkg/telemetry"
)

// CoordinateNormalizer is the part of geo.CoordinateTransformer the search needs.
type CoordinateNormalizer interface {
	SmartDetect(x, y float64) (domain.GeoPoint, error)
	ValidateGeographic(lat, lon float64, strict bool) bool
	IsInRegion(lat, lon float64) bool
}

// SearchLimits bounds and defaults query parameters.
type SearchLimits struct {
	DefaultRadius int
	MinRadius     int
	MaxRadius     int
	DefaultLimit  int
	MaxLimit      int
	SourceTimeout time.Duration
}

// DefaultSearchLimits matches the public API contract.
func DefaultSearchLimits() SearchLimits {
	return SearchLimits{
		DefaultRadius: 2000,
		MinRadius:     100,
		MaxRadius:     10000,
		DefaultLimit:  50,
		MaxLimit:      200,
		SourceTimeout: 5 * time.Second,
	}
}

const (
	SortByDistance = "distance"
	SortByName     = "name"
)

// ProximityUseCase answers "what is near this point" across every source kind.
type ProximityUseCase struct {
	sources    repository.SourceRepository
	cache      *CacheLayer
	normalizer CoordinateNormalizer
	registry   *domain.SourceRegistry
	limits     SearchLimits
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewProximityUseCase(
	sources repository.SourceRepository,
	cache *CacheLayer,
	normalizer CoordinateNormalizer,
	registry *domain.SourceRegistry,
	limits SearchLimits,
	logger *zap.Logger,
) *ProximityUseCase {
	if limits.SourceTimeout <= 0 {
		limits.SourceTimeout = DefaultSearchLimits().SourceTimeout
	}
	return &ProximityUseCase{
		sources:    sources,
		cache:      cache,
		normalizer: normalizer,
		registry:   registry,
		limits:     limits,
		logger:     logger,
		tracer:     telemetry.Tracer(),
	}
}

// NewQuery validates raw parameters before any I/O. Zero radius or limit take
// the defaults; an empty category searches every kind.
func (uc *ProximityUseCase) NewQuery(lat, lon float64, radiusMeters int, category string, limit int) (domain.SearchQuery, error) {
	if radiusMeters == 0 {
		radiusMeters = uc.limits.DefaultRadius
	}
	if limit == 0 {
		limit = uc.limits.DefaultLimit
	}

	q := domain.SearchQuery{
		Center:       domain.GeoPoint{Latitude: lat, Longitude: lon},
		RadiusMeters: radiusMeters,
		Limit:        limit,
	}
	if strings.TrimSpace(category) != "" {
		kind := domain.SourceKind(category)
		if parsed, ok := uc.registry.Parse(category); ok {
			kind = parsed
		}
		q.Category = &kind
	}

	if err := uc.validate(q); err != nil {
		return domain.SearchQuery{}, err
	}
	if !uc.normalizer.IsInRegion(lat, lon) {
		uc.logger.Debug("Search center outside service region",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon))
	}
	return q, nil
}

// validate checks a fully built query. Defaults are not applied here.
func (uc *ProximityUseCase) validate(q domain.SearchQuery) error {
	lat, lon := q.Center.Latitude, q.Center.Longitude
	if !uc.normalizer.ValidateGeographic(lat, lon, false) {
		return errors.ErrInvalidCoordinates.WithDetails(map[string]interface{}{
			"lat": lat,
			"lon": lon,
		})
	}

	if q.RadiusMeters < uc.limits.MinRadius || q.RadiusMeters > uc.limits.MaxRadius {
		return errors.ErrInvalidRadius.WithDetails(map[string]interface{}{
			"radius": q.RadiusMeters,
			"min":    uc.limits.MinRadius,
			"max":    uc.limits.MaxRadius,
		})
	}

	if q.Limit < 1 || q.Limit > uc.limits.MaxLimit {
		return errors.ErrInvalidLimit.WithDetails(map[string]interface{}{
			"limit": q.Limit,
			"min":   1,
			"max":   uc.limits.MaxLimit,
		})
	}

	if q.Category != nil {
		if _, ok := uc.registry.Descriptor(*q.Category); !ok {
			return errors.ErrInvalidCategory.WithDetails(map[string]interface{}{
				"category":  string(*q.Category),
				"available": uc.registry.Kinds(),
			})
		}
	}
	return nil
}

// Search resolves a query: cache lookup, then on a miss a concurrent fetch of
// every relevant source, filtering, sorting and a cache write. Sources that fail
// are left out; only when all of them fail does Search return
// errors.ErrAllSourcesUnavailable. Invalid queries are rejected before any I/O.
func (uc *ProximityUseCase) Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error) {
	if err := uc.validate(q); err != nil {
		return nil, err
	}
	start := time.Now()
	requestID := uuid.NewString()
	category := q.CategoryName()

	ctx, span := uc.tracer.Start(ctx, "proximity.search", trace.WithAttributes(
		attribute.String("request_id", requestID),
		attribute.String("category", category),
		attribute.Int("radius_meters", q.RadiusMeters),
		attribute.Int("limit", q.Limit),
	))
	defer span.End()

	key := uc.cache.Key(q)
	if records, ok := uc.cache.Get(ctx, key); ok {
		result := uc.buildResult(q, truncate(records, q.Limit), start, true, requestID)
		span.SetAttributes(attribute.Bool("cache_hit", true), attribute.Int("total", result.Total))
		uc.observe(q, result)
		return result, nil
	}

	kinds := uc.registry.Kinds()
	if q.Category != nil {
		kinds = []domain.SourceKind{*q.Category}
	}

	candidates, failed := uc.fetchAll(ctx, kinds)
	if failed == len(kinds) {
		metrics.SearchFailures.WithLabelValues(categoryLabel(category)).Inc()
		span.SetStatus(codes.Error, "all sources unavailable")
		uc.logger.Error("All sources unavailable",
			zap.String("request_id", requestID),
			zap.Int("sources", len(kinds)))
		return nil, errors.ErrAllSourcesUnavailable.WithDetails(map[string]interface{}{
			"sources": kinds,
		})
	}

	// The key carries no limit, so the entry holds as many records as any
	// query may ask for and each query truncates its own copy.
	records := geo.FindNearby(candidates, q.Center, float64(q.RadiusMeters), uc.maxLimit(q), uc.registry)

	// Неполный результат живет недолго, чтобы восстановившийся источник
	// быстро вернулся в выдачу.
	var ttl time.Duration
	if failed > 0 {
		ttl = uc.cache.PartialTTL()
	}
	uc.cache.Set(ctx, key, records, ttl)

	result := uc.buildResult(q, truncate(records, q.Limit), start, false, requestID)
	span.SetAttributes(
		attribute.Bool("cache_hit", false),
		attribute.Int("total", result.Total),
		attribute.Int("candidates", len(candidates)),
		attribute.Int("failed_sources", failed),
	)
	uc.observe(q, result)
	return result, nil
}

// SearchByCategories runs one search per kind with its own limit. Kinds whose
// source is down are omitted unless all of them are.
func (uc *ProximityUseCase) SearchByCategories(ctx context.Context, center domain.GeoPoint, radiusMeters int, kinds []domain.SourceKind, limitPerKind int) ([]domain.CategoryResult, error) {
	if len(kinds) == 0 {
		kinds = uc.registry.Kinds()
	}

	queries := make([]domain.SearchQuery, len(kinds))
	for i, kind := range kinds {
		q, err := uc.NewQuery(center.Latitude, center.Longitude, radiusMeters, string(kind), limitPerKind)
		if err != nil {
			return nil, err
		}
		queries[i] = q
	}

	results := make([]*domain.SearchResult, len(kinds))
	var g errgroup.Group
	for i := range queries {
		g.Go(func() error {
			result, err := uc.Search(ctx, queries[i])
			if err != nil {
				if stderrors.Is(err, errors.ErrAllSourcesUnavailable) {
					uc.logger.Warn("Category search failed", zap.String("source_kind", string(kinds[i])), zap.Error(err))
					return nil
				}
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.CategoryResult, 0, len(kinds))
	for i, result := range results {
		if result != nil {
			out = append(out, domain.CategoryResult{Kind: kinds[i], Result: result})
		}
	}
	if len(out) == 0 {
		return nil, errors.ErrAllSourcesUnavailable.WithDetails(map[string]interface{}{
			"sources": kinds,
		})
	}
	return out, nil
}

// Categories lists the catalogue. Counts are best effort.
func (uc *ProximityUseCase) Categories(ctx context.Context) []domain.CategoryInfo {
	descriptors := uc.registry.Descriptors()
	out := make([]domain.CategoryInfo, len(descriptors))

	var g errgroup.Group
	for i, d := range descriptors {
		out[i] = domain.CategoryInfo{SourceDescriptor: d}
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, uc.limits.SourceTimeout)
			defer cancel()

			n, err := uc.sources.Count(cctx, d.Kind)
			if err != nil {
				uc.logger.Warn("Failed to count source records", zap.String("source_kind", string(d.Kind)), zap.Error(err))
				return nil
			}
			out[i].Count = &n
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// SortRecords reorders a result's records. Name order uses each kind's display
// name field; ties keep distance order.
func (uc *ProximityUseCase) SortRecords(records []domain.CandidateRecord, sortBy string) ([]domain.CandidateRecord, error) {
	switch sortBy {
	case "", SortByDistance:
		return records, nil
	case SortByName:
		out := make([]domain.CandidateRecord, len(records))
		copy(out, records)
		sort.SliceStable(out, func(i, j int) bool {
			return uc.displayName(out[i]) < uc.displayName(out[j])
		})
		return out, nil
	default:
		return nil, errors.ErrInvalidRequest.WithDetails(map[string]interface{}{
			"sort_by":   sortBy,
			"available": []string{SortByDistance, SortByName},
		})
	}
}

func (uc *ProximityUseCase) displayName(r domain.CandidateRecord) string {
	d, ok := uc.registry.Descriptor(r.Kind)
	if !ok {
		return ""
	}
	return r.Attr(d.NameField)
}

func (uc *ProximityUseCase) fetchAll(ctx context.Context, kinds []domain.SourceKind) ([]domain.CandidateRecord, int) {
	perKind := make([][]domain.CandidateRecord, len(kinds))
	errs := make([]error, len(kinds))

	var g errgroup.Group
	for i, kind := range kinds {
		g.Go(func() error {
			perKind[i], errs[i] = uc.fetchSource(ctx, kind)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	total := 0
	for i := range kinds {
		if errs[i] != nil {
			failed++
			continue
		}
		total += len(perKind[i])
	}

	merged := make([]domain.CandidateRecord, 0, total)
	for i := range kinds {
		if errs[i] == nil {
			merged = append(merged, perKind[i]...)
		}
	}
	return merged, failed
}

func (uc *ProximityUseCase) fetchSource(ctx context.Context, kind domain.SourceKind) ([]domain.CandidateRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.limits.SourceTimeout)
	defer cancel()

	ctx, span := uc.tracer.Start(ctx, "proximity.fetch_source", trace.WithAttributes(
		attribute.String("source_kind", string(kind)),
	))
	defer span.End()

	start := time.Now()
	records, err := uc.sources.Fetch(ctx, kind)
	metrics.SourceFetchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFetchErrors.WithLabelValues(string(kind)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "source unavailable")
		uc.logger.Warn("Source unavailable, continuing without it",
			zap.String("source_kind", string(kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, errors.ErrSourceUnavailable.
			WithDetails(map[string]interface{}{"source_kind": kind}).
			WithCause(fmt.Errorf("fetch %s: %w", kind, err))
	}

	normalized := uc.normalize(kind, records)
	span.SetAttributes(attribute.Int("records", len(records)), attribute.Int("usable", len(normalized)))
	return normalized, nil
}

// normalize tags records with kind, converts TM coordinates to WGS84 and drops
// records whose coordinates are missing or unusable.
func (uc *ProximityUseCase) normalize(kind domain.SourceKind, records []domain.CandidateRecord) []domain.CandidateRecord {
	mapping := uc.registry.MappingFor(kind)
	out := make([]domain.CandidateRecord, 0, len(records))

	for _, r := range records {
		r.Kind = kind

		lat, lon, ok := mapping.Extract(r.Attributes)
		if !ok {
			uc.skip(kind, "missing_coordinates", nil)
			continue
		}

		p, err := uc.normalizer.SmartDetect(lon, lat)
		if err != nil {
			uc.skip(kind, "coordinate_error", err)
			continue
		}
		if !uc.normalizer.ValidateGeographic(p.Latitude, p.Longitude, false) {
			uc.skip(kind, "out_of_range", nil)
			continue
		}
		if !uc.normalizer.IsInRegion(p.Latitude, p.Longitude) {
			uc.logger.Debug("Record outside service region",
				zap.String("source_kind", string(kind)),
				zap.Float64("lat", p.Latitude),
				zap.Float64("lon", p.Longitude))
		}

		if p.Latitude != lat || p.Longitude != lon {
			attrs := make(map[string]interface{}, len(r.Attributes))
			for k, v := range r.Attributes {
				attrs[k] = v
			}
			mapping.Store(attrs, p)
			r.Attributes = attrs
		}
		out = append(out, r)
	}
	return out
}

func (uc *ProximityUseCase) skip(kind domain.SourceKind, reason string, err error) {
	metrics.RecordsSkipped.WithLabelValues(string(kind), reason).Inc()
	if err != nil {
		uc.logger.Debug("Skipping record", zap.String("source_kind", string(kind)), zap.String("reason", reason), zap.Error(err))
		return
	}
	uc.logger.Debug("Skipping record", zap.String("source_kind", string(kind)), zap.String("reason", reason))
}

func (uc *ProximityUseCase) buildResult(q domain.SearchQuery, records []domain.CandidateRecord, start time.Time, cacheHit bool, requestID string) *domain.SearchResult {
	if records == nil {
		records = []domain.CandidateRecord{}
	}
	return &domain.SearchResult{
		Records:          records,
		Total:            len(records),
		Center:           q.Center,
		RadiusMeters:     q.RadiusMeters,
		ExecutionSeconds: time.Since(start).Seconds(),
		CacheHit:         cacheHit,
		RequestID:        requestID,
		Summary:          Summarize(records, q.RadiusMeters),
	}
}

func (uc *ProximityUseCase) observe(q domain.SearchQuery, result *domain.SearchResult) {
	cacheLabel := "miss"
	if result.CacheHit {
		cacheLabel = "hit"
	}
	metrics.SearchDuration.WithLabelValues(categoryLabel(q.CategoryName()), cacheLabel).Observe(result.ExecutionSeconds)

	uc.logger.Info("Search completed",
		zap.String("request_id", result.RequestID),
		zap.String("category", q.CategoryName()),
		zap.Int("radius", q.RadiusMeters),
		zap.Int("total", result.Total),
		zap.Bool("cache_hit", result.CacheHit),
		zap.Float64("execution_seconds", result.ExecutionSeconds))
}

// Summarize aggregates per-kind counts and distance statistics.
func Summarize(records []domain.CandidateRecord, radiusMeters int) domain.SearchSummary {
	summary := domain.SearchSummary{
		CategoryCounts: make(map[domain.SourceKind]int),
		RadiusKm:       float64(radiusMeters) / 1000,
	}

	var sum float64
	var n int
	minD, maxD := math.Inf(1), math.Inf(-1)
	for _, r := range records {
		summary.CategoryCounts[r.Kind]++
		if r.DistanceMeters == nil {
			continue
		}
		d := *r.DistanceMeters
		sum += d
		n++
		minD = math.Min(minD, d)
		maxD = math.Max(maxD, d)
	}

	if n > 0 {
		avg := sum / float64(n)
		summary.AverageDistance = &avg
		summary.MinDistance = &minD
		summary.MaxDistance = &maxD
		summary.AverageFormatted = geo.FormatDistance(avg)
		summary.NearestFormatted = geo.FormatDistance(minD)
		summary.FarthestFormatted = geo.FormatDistance(maxD)
	}
	return summary
}

func (uc *ProximityUseCase) maxLimit(q domain.SearchQuery) int {
	if uc.limits.MaxLimit > q.Limit {
		return uc.limits.MaxLimit
	}
	return q.Limit
}

func truncate(records []domain.CandidateRecord, limit int) []domain.CandidateRecord {
	if len(records) > limit {
		return records[:limit]
	}
	return records
}

func categoryLabel(category string) string {
	if category == "" {
		return "all"
	}
	return category
}
