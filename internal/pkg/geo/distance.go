package geo

import (
	"fmt"
	"math"
	"sort"

	"github.com/seoul-location-services/internal/domain"
)

const (
	// EarthRadiusMeters is the mean Earth radius.
	EarthRadiusMeters = 6371000.0

	// metersPerDegree is slightly below the true ~111195 m, so boxes err on the large side.
	metersPerDegree = 111000.0

	degToRad = math.Pi / 180

	// lonPadding widens the longitude delta by the same margin metersPerDegree gives latitude.
	lonPadding = EarthRadiusMeters * degToRad / metersPerDegree
)

// MappingResolver returns the coordinate mapping for a record kind.
// domain.CoordinateFieldMapping and *domain.SourceRegistry both implement it.
type MappingResolver interface {
	MappingFor(kind domain.SourceKind) domain.CoordinateFieldMapping
}

// Haversine returns the great-circle distance in meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	if a > 1 {
		a = 1
	}

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns a rectangle that contains every point within radiusMeters of
// center. Near the poles and across the antimeridian it widens to the full
// longitude range.
func BoundingBox(center domain.GeoPoint, radiusMeters float64) domain.RegionBounds {
	latDelta := radiusMeters / metersPerDegree

	box := domain.RegionBounds{
		MinLat: center.Latitude - latDelta,
		MaxLat: center.Latitude + latDelta,
		MinLon: -180,
		MaxLon: 180,
	}
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		return box
	}

	// Долготная полуширина круга: asin(sin(r/R)/cos φ), а не r/cos φ,
	// иначе у полюсов рамка выходит уже круга.
	cosLat := math.Cos(center.Latitude * degToRad)
	sinAngle := math.Sin(radiusMeters / EarthRadiusMeters)
	if sinAngle >= cosLat {
		return box
	}
	lonDelta := math.Asin(sinAngle/cosLat) / degToRad * lonPadding
	if center.Longitude-lonDelta < -180 || center.Longitude+lonDelta > 180 {
		return box
	}

	box.MinLon = center.Longitude - lonDelta
	box.MaxLon = center.Longitude + lonDelta
	return box
}

// FilterByBoundingBox keeps records whose coordinates fall inside bounds.
// Records without usable coordinates are dropped.
func FilterByBoundingBox(records []domain.CandidateRecord, bounds domain.RegionBounds, mappings MappingResolver) []domain.CandidateRecord {
	out := make([]domain.CandidateRecord, 0, len(records))
	for _, r := range records {
		lat, lon, ok := mappings.MappingFor(r.Kind).Extract(r.Attributes)
		if !ok || !bounds.Contains(lat, lon) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterByRadius attaches the distance to center and drops records farther than
// radiusMeters or without coordinates.
func FilterByRadius(records []domain.CandidateRecord, center domain.GeoPoint, radiusMeters float64, mappings MappingResolver) []domain.CandidateRecord {
	out := make([]domain.CandidateRecord, 0, len(records))
	for _, r := range records {
		lat, lon, ok := mappings.MappingFor(r.Kind).Extract(r.Attributes)
		if !ok {
			continue
		}
		d := Haversine(center.Latitude, center.Longitude, lat, lon)
		if d > radiusMeters {
			continue
		}
		out = append(out, r.WithDistance(d))
	}
	return out
}

// SortByDistance sorts a copy of records by distance. It is stable, and records
// without a distance go last in either direction.
func SortByDistance(records []domain.CandidateRecord, ascending bool) []domain.CandidateRecord {
	out := make([]domain.CandidateRecord, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DistanceMeters, out[j].DistanceMeters
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case ascending:
			return *a < *b
		default:
			return *a > *b
		}
	})
	return out
}

// FormatDistance renders "412m" below a kilometer and "2.7km" from there on.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(meters))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

// FindNearby runs the full pipeline in order: box pre-filter, exact radius filter,
// ascending sort, truncation to limit, then distance formatting.
func FindNearby(records []domain.CandidateRecord, center domain.GeoPoint, radiusMeters float64, limit int, mappings MappingResolver) []domain.CandidateRecord {
	candidates := FilterByBoundingBox(records, BoundingBox(center, radiusMeters), mappings)
	within := FilterByRadius(candidates, center, radiusMeters, mappings)
	return truncateAndFormat(SortByDistance(within, true), limit)
}

// Nearest returns the limit closest records regardless of distance.
func Nearest(records []domain.CandidateRecord, center domain.GeoPoint, limit int, mappings MappingResolver) []domain.CandidateRecord {
	return truncateAndFormat(SortByDistance(FilterByRadius(records, center, math.Inf(1), mappings), true), limit)
}

func truncateAndFormat(records []domain.CandidateRecord, limit int) []domain.CandidateRecord {
	if limit >= 0 && len(records) > limit {
		records = records[:limit]
	}
	for i := range records {
		if records[i].DistanceMeters != nil {
			records[i] = records[i].WithFormattedDistance(FormatDistance(*records[i].DistanceMeters))
		}
	}
	return records
}
