package domain

// SearchQuery is validated once and never changed afterwards.
type SearchQuery struct {
	Center       GeoPoint
	RadiusMeters int
	Category     *SourceKind
	Limit        int
}

// CategoryName returns the category or "" for a cross-kind search.
func (q SearchQuery) CategoryName() string {
	if q.Category == nil {
		return ""
	}
	return string(*q.Category)
}

// SearchResult is built once per query, on hit and on miss alike.
type SearchResult struct {
	Records          []CandidateRecord `json:"records"`
	Total            int               `json:"total"`
	Center           GeoPoint          `json:"center"`
	RadiusMeters     int               `json:"radius_meters"`
	ExecutionSeconds float64           `json:"execution_seconds"`
	CacheHit         bool              `json:"cache_hit"`
	RequestID        string            `json:"request_id"`
	Summary          SearchSummary     `json:"summary"`
}

// SearchSummary aggregates the returned records.
type SearchSummary struct {
	CategoryCounts    map[SourceKind]int `json:"category_counts"`
	RadiusKm          float64            `json:"radius_km"`
	AverageDistance   *float64           `json:"average_distance_meters,omitempty"`
	MinDistance       *float64           `json:"min_distance_meters,omitempty"`
	MaxDistance       *float64           `json:"max_distance_meters,omitempty"`
	AverageFormatted  string             `json:"average_distance,omitempty"`
	NearestFormatted  string             `json:"nearest_distance,omitempty"`
	FarthestFormatted string             `json:"farthest_distance,omitempty"`
}

// CategoryResult pairs a kind with its own search result.
type CategoryResult struct {
	Kind   SourceKind    `json:"category"`
	Result *SearchResult `json:"result"`
}

// CacheStats is the observability surface of the result cache.
type CacheStats struct {
	Enabled        bool    `json:"enabled"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	HitRatePercent float64 `json:"hit_rate_percent"`
}

// CategoryInfo is a catalogue entry with its current record count, when known.
type CategoryInfo struct {
	SourceDescriptor
	Count *int `json:"count,omitempty"`
}
