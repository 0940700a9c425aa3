package dto

// NearbySearchRequest - параметры поиска ближайших объектов.
// Lat/Lon - указатели, чтобы отличить отсутствующий параметр от нуля.
type NearbySearchRequest struct {
	Lat      *float64 `query:"lat" validate:"required,latitude"`
	Lon      *float64 `query:"lon" validate:"required,longitude"`
	Radius   int      `query:"radius" validate:"omitempty,min=1"`
	Category string   `query:"category" validate:"omitempty,max=64"`
	Limit    int      `query:"limit" validate:"omitempty,min=1"`
	GroupBy  string   `query:"group_by" validate:"omitempty,oneof=category"`
}

// CategorySearchRequest - поиск внутри одной категории с сортировкой
type CategorySearchRequest struct {
	Lat    *float64 `query:"lat" validate:"required,latitude"`
	Lon    *float64 `query:"lon" validate:"required,longitude"`
	Radius int      `query:"radius" validate:"omitempty,min=1"`
	Limit  int      `query:"limit" validate:"omitempty,min=1"`
	SortBy string   `query:"sort_by" validate:"omitempty,oneof=distance name"`
}

// CacheInvalidateRequest - параметры сброса кеша
type CacheInvalidateRequest struct {
	Pattern string `query:"pattern" validate:"omitempty,max=256"`
}
