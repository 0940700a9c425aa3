package errors

import "net/http"

const (
	CodeInvalidQuery          = "INVALID_QUERY"
	CodeCoordinateError       = "COORDINATE_ERROR"
	CodeSourceUnavailable     = "SOURCE_UNAVAILABLE"
	CodeAllSourcesUnavailable = "ALL_SOURCES_UNAVAILABLE"
	CodeCacheUnavailable      = "CACHE_UNAVAILABLE"
)

var (
	// ErrInvalidQuery is rejected before any I/O happens.
	ErrInvalidQuery = New(
		CodeInvalidQuery,
		"Invalid search query",
		http.StatusBadRequest,
	)

	ErrInvalidCoordinates = NewKind(
		ErrInvalidQuery,
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
	)

	ErrInvalidRadius = NewKind(
		ErrInvalidQuery,
		"INVALID_RADIUS",
		"Invalid radius value",
	)

	ErrInvalidLimit = NewKind(
		ErrInvalidQuery,
		"INVALID_LIMIT",
		"Invalid limit value",
	)

	ErrInvalidCategory = NewKind(
		ErrInvalidQuery,
		"INVALID_CATEGORY",
		"Unknown service category",
	)

	ErrInvalidRequest = NewKind(
		ErrInvalidQuery,
		"INVALID_REQUEST",
		"Invalid request parameters",
	)

	// ErrCoordinate marks input the coordinate transformer could not handle.
	ErrCoordinate = New(
		CodeCoordinateError,
		"Coordinate transformation failed",
		http.StatusUnprocessableEntity,
	)

	ErrSourceUnavailable = New(
		CodeSourceUnavailable,
		"Data source unavailable",
		http.StatusServiceUnavailable,
	)

	ErrAllSourcesUnavailable = New(
		CodeAllSourcesUnavailable,
		"All data sources are unavailable",
		http.StatusServiceUnavailable,
	)

	// ErrCacheUnavailable never reaches search callers.
	ErrCacheUnavailable = New(
		CodeCacheUnavailable,
		"Cache backend unavailable",
		http.StatusServiceUnavailable,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
