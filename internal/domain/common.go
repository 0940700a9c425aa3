package domain

import (
	"fmt"

	"github.com/paulmach/orb"
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Latitude, p.Longitude)
}

// Valid reports whether p lies within the universal geographic ranges.
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// Orb returns p as an orb point (x = longitude, y = latitude).
func (p GeoPoint) Orb() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// ProjectedPoint is a planar TM coordinate in meters. Used for legacy ingestion only.
type ProjectedPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RegionBounds is an axis-aligned lat/lon rectangle.
type RegionBounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Bound converts the rectangle into an orb.Bound.
func (b RegionBounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// Contains is an inclusive containment test.
func (b RegionBounds) Contains(lat, lon float64) bool {
	return b.Bound().Contains(orb.Point{lon, lat})
}
