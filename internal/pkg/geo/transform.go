package geo

import (
	"fmt"
	"math"
	"sync"

	"github.com/twpayne/go-proj/v10"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/pkg/errors"
)

// TransformerConfig defines the projection pair and the serviceable region.
type TransformerConfig struct {
	SourceCRS string
	TargetCRS string
	Region    domain.RegionBounds
}

// CoordinateTransformer converts between a planar TM projection and WGS84.
// Axis order is normalized to easting/northing and lon/lat on both ends.
type CoordinateTransformer struct {
	mu     sync.Mutex
	pj     *proj.PJ
	region domain.RegionBounds
	logger *zap.Logger
}

func NewCoordinateTransformer(cfg TransformerConfig, logger *zap.Logger) (*CoordinateTransformer, error) {
	pj, err := proj.NewCRSToCRS(cfg.SourceCRS, cfg.TargetCRS, nil)
	if err != nil {
		return nil, fmt.Errorf("create transform %s -> %s: %w", cfg.SourceCRS, cfg.TargetCRS, err)
	}
	normalized, err := pj.NormalizeForVisualization()
	pj.Destroy()
	if err != nil {
		return nil, fmt.Errorf("normalize axis order: %w", err)
	}

	logger.Info("Coordinate transformer initialized",
		zap.String("source_crs", cfg.SourceCRS),
		zap.String("target_crs", cfg.TargetCRS))

	return &CoordinateTransformer{
		pj:     normalized,
		region: cfg.Region,
		logger: logger,
	}, nil
}

// ToGeographic projects a TM point to WGS84.
func (t *CoordinateTransformer) ToGeographic(p domain.ProjectedPoint) (domain.GeoPoint, error) {
	if !finite(p.X) || !finite(p.Y) {
		return domain.GeoPoint{}, coordinateError("non-finite projected input", p.X, p.Y, nil)
	}

	t.mu.Lock()
	out, err := t.pj.Forward(proj.NewCoord(p.X, p.Y, 0, 0))
	t.mu.Unlock()
	if err != nil {
		return domain.GeoPoint{}, coordinateError("forward transform failed", p.X, p.Y, err)
	}

	g := domain.GeoPoint{Latitude: out.Y(), Longitude: out.X()}
	if !finite(g.Latitude) || !finite(g.Longitude) || !g.Valid() {
		return domain.GeoPoint{}, coordinateError("forward transform out of range", p.X, p.Y, nil)
	}
	return g, nil
}

// ToProjected is the inverse of ToGeographic.
func (t *CoordinateTransformer) ToProjected(g domain.GeoPoint) (domain.ProjectedPoint, error) {
	if !finite(g.Latitude) || !finite(g.Longitude) || !g.Valid() {
		return domain.ProjectedPoint{}, coordinateError("invalid geographic input", g.Longitude, g.Latitude, nil)
	}

	t.mu.Lock()
	out, err := t.pj.Inverse(proj.NewCoord(g.Longitude, g.Latitude, 0, 0))
	t.mu.Unlock()
	if err != nil {
		return domain.ProjectedPoint{}, coordinateError("inverse transform failed", g.Longitude, g.Latitude, err)
	}

	p := domain.ProjectedPoint{X: out.X(), Y: out.Y()}
	if !finite(p.X) || !finite(p.Y) {
		return domain.ProjectedPoint{}, coordinateError("inverse transform out of range", g.Longitude, g.Latitude, nil)
	}
	return p, nil
}

// ValidateGeographic never fails; bad input is simply false.
// With strict set the point must also be inside the configured region.
func (t *CoordinateTransformer) ValidateGeographic(lat, lon float64, strict bool) bool {
	if !finite(lat) || !finite(lon) {
		return false
	}
	if !(domain.GeoPoint{Latitude: lat, Longitude: lon}).Valid() {
		return false
	}
	if strict && !t.IsInRegion(lat, lon) {
		return false
	}
	return true
}

func (t *CoordinateTransformer) IsInRegion(lat, lon float64) bool {
	return t.region.Contains(lat, lon)
}

func (t *CoordinateTransformer) Region() domain.RegionBounds {
	return t.region
}

// SmartDetect treats (x, y) as (lon, lat) when both fit geographic ranges and as a
// TM pair otherwise. A TM pair that happens to fit those ranges is misread as
// geographic; callers accept that.
func (t *CoordinateTransformer) SmartDetect(x, y float64) (domain.GeoPoint, error) {
	if finite(x) && finite(y) && x >= -180 && x <= 180 && y >= -90 && y <= 90 {
		return domain.GeoPoint{Latitude: y, Longitude: x}, nil
	}
	return t.ToGeographic(domain.ProjectedPoint{X: x, Y: y})
}

func (t *CoordinateTransformer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pj != nil {
		t.pj.Destroy()
		t.pj = nil
	}
}

// FormatCoordinates renders "lat, lon" with the given number of decimals.
func FormatCoordinates(lat, lon float64, precision int) string {
	return fmt.Sprintf("%.*f, %.*f", precision, lat, precision, lon)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func coordinateError(reason string, x, y float64, cause error) error {
	err := errors.ErrCoordinate.WithDetails(map[string]interface{}{
		"reason": reason,
		"x":      fmt.Sprint(x),
		"y":      fmt.Sprint(y),
	})
	if cause != nil {
		return err.WithCause(cause)
	}
	return err
}
