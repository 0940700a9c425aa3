package geo

import (
	stderrors "errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seoul-location-services/internal/domain"
	"github.com/seoul-location-services/internal/pkg/errors"
)

var seoul = domain.RegionBounds{MinLat: 37, MaxLat: 38, MinLon: 126, MaxLon: 128}

func newTestTransformer(t *testing.T) *CoordinateTransformer {
	t.Helper()
	tr, err := NewCoordinateTransformer(TransformerConfig{
		SourceCRS: "EPSG:2097",
		TargetCRS: "EPSG:4326",
		Region:    seoul,
	}, zap.NewNop())
	if err != nil {
		t.Skipf("PROJ database not available: %v", err)
	}
	t.Cleanup(tr.Close)
	return tr
}

func TestCoordinateTransformer_RoundTrip(t *testing.T) {
	tr := newTestTransformer(t)

	for lat := seoul.MinLat + 0.05; lat < seoul.MaxLat; lat += 0.1 {
		for lon := seoul.MinLon + 0.05; lon < seoul.MaxLon; lon += 0.15 {
			p := domain.GeoPoint{Latitude: lat, Longitude: lon}

			projected, err := tr.ToProjected(p)
			require.NoError(t, err)

			back, err := tr.ToGeographic(projected)
			require.NoError(t, err)
			assert.InDelta(t, p.Latitude, back.Latitude, 1e-4)
			assert.InDelta(t, p.Longitude, back.Longitude, 1e-4)
		}
	}
}

func TestCoordinateTransformer_ProjectedRange(t *testing.T) {
	tr := newTestTransformer(t)

	projected, err := tr.ToProjected(domain.GeoPoint{Latitude: 37.5665, Longitude: 126.9780})
	require.NoError(t, err)

	// Central belt false origin is (200000, 500000); Seoul City Hall sits close to it.
	assert.InDelta(t, 200000, projected.X, 20000)
	assert.InDelta(t, 450000, projected.Y, 20000)
}

func TestCoordinateTransformer_RejectsNonFinite(t *testing.T) {
	tr := newTestTransformer(t)

	_, err := tr.ToGeographic(domain.ProjectedPoint{X: math.NaN(), Y: 1})
	assert.True(t, stderrors.Is(err, errors.ErrCoordinate))

	_, err = tr.ToGeographic(domain.ProjectedPoint{X: 1, Y: math.Inf(1)})
	assert.True(t, stderrors.Is(err, errors.ErrCoordinate))

	_, err = tr.ToProjected(domain.GeoPoint{Latitude: 91, Longitude: 0})
	assert.True(t, stderrors.Is(err, errors.ErrCoordinate))
}

func TestCoordinateTransformer_ValidateGeographic(t *testing.T) {
	tr := newTestTransformer(t)

	tests := []struct {
		name     string
		lat, lon float64
		strict   bool
		expected bool
	}{
		{"seoul", 37.5665, 126.978, false, true},
		{"seoul strict", 37.5665, 126.978, true, true},
		{"busan", 35.1796, 129.0756, false, true},
		{"busan strict", 35.1796, 129.0756, true, false},
		{"latitude out of range", 91, 0, false, false},
		{"longitude out of range", 0, -181, false, false},
		{"nan", math.NaN(), 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tr.ValidateGeographic(tt.lat, tt.lon, tt.strict))
		})
	}
}

func TestCoordinateTransformer_SmartDetect(t *testing.T) {
	tr := newTestTransformer(t)

	g, err := tr.SmartDetect(126.978, 37.5665)
	require.NoError(t, err)
	assert.Equal(t, domain.GeoPoint{Latitude: 37.5665, Longitude: 126.978}, g)

	projected, err := tr.ToProjected(domain.GeoPoint{Latitude: 37.5665, Longitude: 126.978})
	require.NoError(t, err)

	g, err = tr.SmartDetect(projected.X, projected.Y)
	require.NoError(t, err)
	assert.InDelta(t, 37.5665, g.Latitude, 1e-4)
	assert.InDelta(t, 126.978, g.Longitude, 1e-4)
	assert.True(t, tr.IsInRegion(g.Latitude, g.Longitude))

	_, err = tr.SmartDetect(math.NaN(), 37)
	assert.Error(t, err)
}

func TestFormatCoordinates(t *testing.T) {
	assert.Equal(t, "37.566500, 126.978000", FormatCoordinates(37.5665, 126.978, 6))
	assert.Equal(t, "37.57, 126.98", FormatCoordinates(37.5665, 126.978, 2))
}
