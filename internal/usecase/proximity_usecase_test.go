package usecase_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/domain/repository"
	"github.com/seoul-location-services/internal/pkg/errors"
	"github.com/seoul-location-services/internal/pkg/geo"
	"github.com/seoul-location-services/internal/usecase"
)

func newProximityUseCase(t *testing.T, sources repository.SourceRepository, backend repository.CacheRepository) *usecase.ProximityUseCase {
	t.Helper()

	cacheCfg := enabledConfig()
	if backend == nil {
		cacheCfg.Enabled = false
	}
	cache := usecase.NewCacheLayer(context.Background(), backend, cacheCfg, zap.NewNop())

	limits := usecase.DefaultSearchLimits()
	limits.SourceTimeout = 100 * time.Millisecond

	return usecase.NewProximityUseCase(sources, cache, newStubNormalizer(), domain.DefaultSources(nil), limits, zap.NewNop())
}

func libraryFixture() []domain.CandidateRecord {
	return []domain.CandidateRecord{
		library("서울도서관", cityHall),
		library("남산도서관", metersNorth(cityHall, 2700)),
		library("정독도서관", metersNorth(cityHall, 400)),
	}
}

func TestProximityUseCase_Search_Libraries(t *testing.T) {
	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, domain.SourceLibraries).Return(libraryFixture(), nil)

	uc := newProximityUseCase(t, repo, nil)
	q, err := uc.NewQuery(cityHall.Latitude, cityHall.Longitude, 2000, "libraries", 20)
	require.NoError(t, err)

	result, err := uc.Search(context.Background(), q)
	require.NoError(t, err)

	require.Equal(t, 2, result.Total)
	require.Len(t, result.Records, 2)
	assert.False(t, result.CacheHit)
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, 2000, result.RadiusMeters)

	first, second := result.Records[0], result.Records[1]
	assert.Equal(t, "서울도서관", first.Attr("library_name"))
	assert.Equal(t, domain.SourceLibraries, first.Kind)
	assert.InDelta(t, 0, *first.DistanceMeters, 0.01)
	assert.Equal(t, "0m", *first.DistanceFormatted)

	assert.Equal(t, "정독도서관", second.Attr("library_name"))
	assert.InDelta(t, 400, *second.DistanceMeters, 0.5)
	assert.Equal(t, geo.FormatDistance(*second.DistanceMeters), *second.DistanceFormatted)

	assert.Equal(t, 2, result.Summary.CategoryCounts[domain.SourceLibraries])
	repo.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestProximityUseCase_Search_AllSourcesUnavailable(t *testing.T) {
	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, mock.Anything).Return(nil, stderrors.New("connection refused"))

	uc := newProximityUseCase(t, repo, nil)
	q, err := uc.NewQuery(cityHall.Latitude, cityHall.Longitude, 1000, "", 10)
	require.NoError(t, err)

	result, err := uc.Search(context.Background(), q)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrAllSourcesUnavailable))
	repo.AssertNumberOfCalls(t, "Fetch", len(domain.AllSourceKinds()))
}

func TestProximityUseCase_Search_PartialFailure(t *testing.T) {
	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, domain.SourceLibraries).Return(libraryFixture(), nil)
	repo.On("Fetch", mock.Anything, domain.SourceCulturalEvents).Return([]domain.CandidateRecord{
		event("서울광장 재즈 페스티벌", metersNorth(cityHall, 300)),
	}, nil)
	repo.On("Fetch", mock.Anything, mock.Anything).Return(nil, stderrors.New("relation does not exist"))

	uc := newProximityUseCase(t, repo, nil)
	q, err := uc.NewQuery(cityHall.Latitude, cityHall.Longitude, 2000, "", 50)
	require.NoError(t, err)

	result, err := uc.Search(context.Background(), q)
	require.NoError(t, err)

	require.Equal(t, 3, result.Total)
	kinds := []domain.SourceKind{result.Records[0].Kind, result.Records[1].Kind, result.Records[2].Kind}
	assert.Equal(t, []domain.SourceKind{domain.SourceLibraries, domain.SourceCulturalEvents, domain.SourceLibraries}, kinds)
	assert.Equal(t, 1, result.Summary.CategoryCounts[domain.SourceCulturalEvents])
	assert.Equal(t, 2, result.Summary.CategoryCounts[domain.SourceLibraries])
}

func TestProximityUseCase_Search_PartialResultGetsShortTTL(t *testing.T) {
	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, domain.SourceLibraries).Return(libraryFixture(), nil)
	repo.On("Fetch", mock.Anything, mock.Anything).Return(nil, stderrors.New("relation does not exist"))

	backend := newMemoryCache()
	uc := newProximityUseCase(t, repo, backend)
	ctx := context.Background()

	partial, err := uc.NewQuery(cityHall.Latitude, cityHall.Longitude, 2000, "", 50)
	require.NoError(t, err)
	_, err = uc.Search(ctx, partial)
	require.NoError(t, err)

	complete, err := uc.NewQuery(cityHall.Latitude, cityHall.Longitude, 2000, "libraries", 50)
	require.NoError(t, err)
	_, err = uc.Search(ctx, complete)
	require.NoError(t, err)

	assert.Equal(t, usecase.DefaultPartialTTL, backend.ttls["location:37.5665:126.978:2000"])
	assert.Equal(t, 300*time.Second, backend.ttls["location:37.5665:126.978:2000:libraries"])
}

func TestProximityUseCase_Search_SourceTimeoutIsAFailure(t *testing.T) {
	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, domain.SourceLibraries).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)
	repo.On("Fetch", mock.Anything, domain.SourceCulturalEvents).Return([]domain.CandidateRecord{
		event("덕수궁 야간개장", metersNorth(cityHall, 150)),
	}, nil)
	repo.On("Fetch", mock.Anything, mock.Anything).Return([]domain.CandidateRecord{}, nil)

	uc := newProximityUseCase(t, repo, nil)
	q, err := uc.NewQuery(cityHall.Latitude, cityHall.Longitude, 1000, "", 10)
	require.NoError(t, err)

	start := time.Now()
	result, err := uc.Search(context.Background(), q)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, domain.SourceCulturalEvents, result.Records[0].Kind)
}

func TestProximityUseCase_Search_CacheDisabledAlwaysFetches(t *testing.T) {
	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, domain.SourceLibraries).Return(libraryFixture(), nil)

	uc := newProximityUseCase(t, repo, nil)
	q, err := uc.NewQuery(cityHall.Latitude, cityHall.Longitude, 2000, "libraries", 20)
	require.NoError(t, err)

	first, err := uc.Search(context.Background(), q)
	require.NoError(t, err)
	second, err := uc.Search(context.Background(), q)
	require.NoError(t, err)

	assert.False(t, first.CacheHit)
	assert.False(t, second.CacheHit)
	assert.Equal(t, first.Total, second.Total)
	repo.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestProximityUseCase_Search_CacheHit(t *testing.T) {
	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, domain.SourceLibraries).Return(libraryFixture(), nil)

	backend := newMemoryCache()
	uc := newProximityUseCase(t, repo, backend)
	ctx := context.Background()

	q, err := uc.NewQuery(cityHall.Latitude, cityHall.Longitude, 2000, "libraries", 50)
	require.NoError(t, err)

	miss, err := uc.Search(ctx, q)
	require.NoError(t, err)
	assert.False(t, miss.CacheHit)
	assert.Equal(t, []string{"location:37.5665:126.978:2000:libraries"}, backend.keys())

	// nearby center in the same rounding bucket, smaller limit
	q2, err := uc.NewQuery(cityHall.Latitude+0.00001, cityHall.Longitude, 2000, "libraries", 1)
	require.NoError(t, err)

	hit, err := uc.Search(ctx, q2)
	require.NoError(t, err)
	assert.True(t, hit.CacheHit)
	require.Equal(t, 1, hit.Total)
	assert.Equal(t, "서울도서관", hit.Records[0].Attr("library_name"))

	// a larger limit on the same key still sees every cached record
	q3, err := uc.NewQuery(cityHall.Latitude, cityHall.Longitude, 2000, "libraries", 100)
	require.NoError(t, err)
	again, err := uc.Search(ctx, q3)
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
	assert.Equal(t, 2, again.Total)

	repo.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestProximityUseCase_Search_EmptyResultIsNotAnError(t *testing.T) {
	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, domain.SourceLibraries).Return([]domain.CandidateRecord{
		library("먼 도서관", metersNorth(cityHall, 9000)),
	}, nil)

	uc := newProximityUseCase(t, repo, nil)
	q, err := uc.NewQuery(cityHall.Latitude, cityHall.Longitude, 500, "libraries", 10)
	require.NoError(t, err)

	result, err := uc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.NotNil(t, result.Records)
	assert.Nil(t, result.Summary.AverageDistance)
}

func TestProximityUseCase_Search_NormalizesCoordinates(t *testing.T) {
	projected := domain.NewCandidateRecord("", map[string]interface{}{
		"svcnm":   "시청 다목적홀 대관",
		"x_coord": 200000.0,
		"y_coord": 450300.0,
	})
	missing := domain.NewCandidateRecord("", map[string]interface{}{
		"svcnm":   "좌표 없음",
		"x_coord": "",
	})
	broken := domain.NewCandidateRecord("", map[string]interface{}{
		"svcnm":   "잘못된 좌표",
		"x_coord": -500000.0,
		"y_coord": -500000.0,
	})

	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, domain.SourcePublicReservations).
		Return([]domain.CandidateRecord{projected, missing, broken}, nil)

	uc := newProximityUseCase(t, repo, nil)
	q, err := uc.NewQuery(cityHall.Latitude, cityHall.Longitude, 1000, "public_reservations", 10)
	require.NoError(t, err)

	result, err := uc.Search(context.Background(), q)
	require.NoError(t, err)

	require.Equal(t, 1, result.Total)
	rec := result.Records[0]
	assert.Equal(t, "시청 다목적홀 대관", rec.Attr("svcnm"))
	assert.InDelta(t, cityHall.Latitude+300.0/111195, rec.Attributes["y_coord"], 1e-9)
	assert.InDelta(t, cityHall.Longitude, rec.Attributes["x_coord"], 1e-9)
	assert.InDelta(t, 300, *rec.DistanceMeters, 5)

	// the repository's copy is untouched
	assert.Equal(t, 450300.0, projected.Attributes["y_coord"])
}

func TestProximityUseCase_Search_CenterOutsideRegion(t *testing.T) {
	busan := domain.GeoPoint{Latitude: 35.1796, Longitude: 129.0756}

	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, domain.SourceLibraries).Return([]domain.CandidateRecord{
		library("부산 도서관", metersNorth(busan, 100)),
	}, nil)

	uc := newProximityUseCase(t, repo, nil)
	q, err := uc.NewQuery(busan.Latitude, busan.Longitude, 1000, "libraries", 10)
	require.NoError(t, err)

	result, err := uc.Search(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
}

func TestProximityUseCase_NewQuery(t *testing.T) {
	uc := newProximityUseCase(t, &MockSourceRepository{}, nil)

	t.Run("defaults", func(t *testing.T) {
		q, err := uc.NewQuery(37.5665, 126.978, 0, "", 0)
		require.NoError(t, err)
		assert.Equal(t, 2000, q.RadiusMeters)
		assert.Equal(t, 50, q.Limit)
		assert.Nil(t, q.Category)
	})

	t.Run("category is case insensitive", func(t *testing.T) {
		q, err := uc.NewQuery(37.5665, 126.978, 1000, "Libraries", 10)
		require.NoError(t, err)
		require.NotNil(t, q.Category)
		assert.Equal(t, domain.SourceLibraries, *q.Category)
	})

	tests := []struct {
		name     string
		lat, lon float64
		radius   int
		category string
		limit    int
		kind     error
	}{
		{"latitude out of range", 91, 126.978, 1000, "", 10, errors.ErrInvalidCoordinates},
		{"longitude out of range", 37.5, 181, 1000, "", 10, errors.ErrInvalidCoordinates},
		{"radius below minimum", 37.5, 127, 50, "", 10, errors.ErrInvalidRadius},
		{"radius above maximum", 37.5, 127, 20000, "", 10, errors.ErrInvalidRadius},
		{"negative radius", 37.5, 127, -100, "", 10, errors.ErrInvalidRadius},
		{"limit above maximum", 37.5, 127, 1000, "", 500, errors.ErrInvalidLimit},
		{"negative limit", 37.5, 127, 1000, "", -1, errors.ErrInvalidLimit},
		{"unknown category", 37.5, 127, 1000, "parks", 10, errors.ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.NewQuery(tt.lat, tt.lon, tt.radius, tt.category, tt.limit)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.kind))
			assert.True(t, stderrors.Is(err, errors.ErrInvalidQuery))
		})
	}
}

func TestProximityUseCase_Search_RejectsInvalidQuery(t *testing.T) {
	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, mock.Anything).Return(libraryFixture(), nil)
	uc := newProximityUseCase(t, repo, nil)

	libraries := domain.SourceLibraries
	parks := domain.SourceKind("parks")

	tests := []struct {
		name  string
		query domain.SearchQuery
		kind  error
	}{
		{"radius above maximum", domain.SearchQuery{Center: cityHall, RadiusMeters: 50000, Limit: 10}, errors.ErrInvalidRadius},
		{"zero radius", domain.SearchQuery{Center: cityHall, Limit: 10}, errors.ErrInvalidRadius},
		{"zero limit", domain.SearchQuery{Center: cityHall, RadiusMeters: 1000, Category: &libraries}, errors.ErrInvalidLimit},
		{"unknown category", domain.SearchQuery{Center: cityHall, RadiusMeters: 1000, Category: &parks, Limit: 10}, errors.ErrInvalidCategory},
		{"latitude out of range", domain.SearchQuery{Center: domain.GeoPoint{Latitude: 200, Longitude: 127}, RadiusMeters: 1000, Limit: 10}, errors.ErrInvalidCoordinates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := uc.Search(context.Background(), tt.query)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.kind))
			assert.True(t, stderrors.Is(err, errors.ErrInvalidQuery))
		})
	}

	repo.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestProximityUseCase_SearchByCategories(t *testing.T) {
	repo := &MockSourceRepository{}
	repo.On("Fetch", mock.Anything, domain.SourceLibraries).Return(libraryFixture(), nil)
	repo.On("Fetch", mock.Anything, domain.SourceCulturalEvents).Return(nil, stderrors.New("timeout"))

	uc := newProximityUseCase(t, repo, nil)

	results, err := uc.SearchByCategories(context.Background(), cityHall, 3000,
		[]domain.SourceKind{domain.SourceLibraries, domain.SourceCulturalEvents}, 2)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, domain.SourceLibraries, results[0].Kind)
	assert.Equal(t, 2, results[0].Result.Total)
}

func TestProximityUseCase_SearchByCategories_InvalidInput(t *testing.T) {
	uc := newProximityUseCase(t, &MockSourceRepository{}, nil)

	_, err := uc.SearchByCategories(context.Background(), cityHall, 50, nil, 5)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidRadius))
}

func TestProximityUseCase_Categories(t *testing.T) {
	repo := &MockSourceRepository{}
	repo.On("Count", mock.Anything, domain.SourceLibraries).Return(187, nil)
	repo.On("Count", mock.Anything, mock.Anything).Return(0, stderrors.New("permission denied"))

	uc := newProximityUseCase(t, repo, nil)
	categories := uc.Categories(context.Background())

	require.Len(t, categories, 5)
	for _, c := range categories {
		if c.Kind == domain.SourceLibraries {
			require.NotNil(t, c.Count)
			assert.Equal(t, 187, *c.Count)
			assert.Equal(t, "도서관", c.Name)
			continue
		}
		assert.Nil(t, c.Count, c.Kind)
	}
	assert.Equal(t, domain.SourceCulturalEvents, categories[0].Kind)
}

func TestProximityUseCase_SortRecords(t *testing.T) {
	uc := newProximityUseCase(t, &MockSourceRepository{}, nil)

	records := []domain.CandidateRecord{
		domain.NewCandidateRecord(domain.SourceLibraries, map[string]interface{}{"library_name": "다산도서관"}).WithDistance(10),
		domain.NewCandidateRecord(domain.SourceLibraries, map[string]interface{}{"library_name": "가람도서관"}).WithDistance(20),
		domain.NewCandidateRecord(domain.SourceLibraries, map[string]interface{}{"library_name": "나래도서관"}).WithDistance(30),
	}

	byDistance, err := uc.SortRecords(records, "")
	require.NoError(t, err)
	assert.Equal(t, records, byDistance)

	byName, err := uc.SortRecords(records, usecase.SortByName)
	require.NoError(t, err)
	names := []string{byName[0].Attr("library_name"), byName[1].Attr("library_name"), byName[2].Attr("library_name")}
	assert.Equal(t, []string{"가람도서관", "나래도서관", "다산도서관"}, names)
	assert.Equal(t, "다산도서관", records[0].Attr("library_name"))

	_, err = uc.SortRecords(records, "rating")
	assert.True(t, stderrors.Is(err, errors.ErrInvalidRequest))
}

func TestSummarize(t *testing.T) {
	records := []domain.CandidateRecord{
		domain.NewCandidateRecord(domain.SourceLibraries, nil).WithDistance(100),
		domain.NewCandidateRecord(domain.SourceCulturalEvents, nil).WithDistance(300),
		domain.NewCandidateRecord(domain.SourceLibraries, nil).WithDistance(1400),
	}

	summary := usecase.Summarize(records, 2000)

	assert.Equal(t, 2.0, summary.RadiusKm)
	assert.Equal(t, map[domain.SourceKind]int{
		domain.SourceLibraries:      2,
		domain.SourceCulturalEvents: 1,
	}, summary.CategoryCounts)
	require.NotNil(t, summary.AverageDistance)
	assert.InDelta(t, 600, *summary.AverageDistance, 1e-9)
	assert.Equal(t, 100.0, *summary.MinDistance)
	assert.Equal(t, 1400.0, *summary.MaxDistance)
	assert.Equal(t, "600m", summary.AverageFormatted)
	assert.Equal(t, "100m", summary.NearestFormatted)
	assert.Equal(t, "1.4km", summary.FarthestFormatted)

	empty := usecase.Summarize(nil, 500)
	assert.Nil(t, empty.AverageDistance)
	assert.Empty(t, empty.CategoryCounts)
	assert.Equal(t, 0.5, empty.RadiusKm)
}
