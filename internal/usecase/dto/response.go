package dto

import (
	"time"

	"github.com/seoul-location-services/internal/domain"
)

// LocationSearchResponse - ответ поиска по радиусу
type LocationSearchResponse struct {
	Services         []domain.CandidateRecord `json:"services"`
	Total            int                      `json:"total"`
	Center           domain.GeoPoint          `json:"center"`
	RadiusMeters     int                      `json:"radius_meters"`
	Category         string                   `json:"category,omitempty"`
	SortBy           string                   `json:"sort_by,omitempty"`
	CacheHit         bool                     `json:"cache_hit"`
	ExecutionSeconds float64                  `json:"execution_time"`
	RequestID        string                   `json:"request_id"`
	Summary          domain.SearchSummary     `json:"summary"`
}

// NewLocationSearchResponse flattens a search result for the wire.
func NewLocationSearchResponse(r *domain.SearchResult, category string) LocationSearchResponse {
	services := r.Records
	if services == nil {
		services = []domain.CandidateRecord{}
	}
	return LocationSearchResponse{
		Services:         services,
		Total:            r.Total,
		Center:           r.Center,
		RadiusMeters:     r.RadiusMeters,
		Category:         category,
		CacheHit:         r.CacheHit,
		ExecutionSeconds: r.ExecutionSeconds,
		RequestID:        r.RequestID,
		Summary:          r.Summary,
	}
}

// NewSortedSearchResponse is NewLocationSearchResponse with the records in the
// order given by sorted. r itself is not modified.
func NewSortedSearchResponse(r *domain.SearchResult, category string, sorted []domain.CandidateRecord, sortBy string) LocationSearchResponse {
	resp := NewLocationSearchResponse(r, category)
	if sorted != nil {
		resp.Services = sorted
	}
	resp.SortBy = sortBy
	return resp
}

// CategoryGroupResponse - результаты, сгруппированные по категориям
type CategoryGroupResponse struct {
	Center       domain.GeoPoint                   `json:"center"`
	RadiusMeters int                               `json:"radius_meters"`
	Categories   map[string]LocationSearchResponse `json:"categories"`
	Total        int                               `json:"total"`
}

func NewCategoryGroupResponse(center domain.GeoPoint, radius int, results []domain.CategoryResult) CategoryGroupResponse {
	resp := CategoryGroupResponse{
		Center:       center,
		RadiusMeters: radius,
		Categories:   make(map[string]LocationSearchResponse, len(results)),
	}
	for _, cr := range results {
		resp.Categories[string(cr.Kind)] = NewLocationSearchResponse(cr.Result, string(cr.Kind))
		resp.Total += cr.Result.Total
	}
	return resp
}

// CategoryListResponse - каталог категорий
type CategoryListResponse struct {
	Categories []domain.CategoryInfo `json:"categories"`
	Total      int                   `json:"total"`
}

// CacheStatsResponse - статистика кеша
type CacheStatsResponse struct {
	domain.CacheStats
	TTLSeconds int    `json:"ttl_seconds"`
	KeyPattern string `json:"key_pattern"`
}

// CacheInvalidateResponse - результат сброса кеша
type CacheInvalidateResponse struct {
	Pattern     string `json:"pattern"`
	Category    string `json:"category,omitempty"`
	DeletedKeys int    `json:"deleted_keys"`
}

// ComponentHealth - состояние одной зависимости
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse - ответ health check
type HealthResponse struct {
	Status     string                     `json:"status"`
	Time       time.Time                  `json:"time"`
	Components map[string]ComponentHealth `json:"components"`
}
