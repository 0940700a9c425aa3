package domain

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// SourceKind identifies a category of location records.
type SourceKind string

const (
	SourceCulturalEvents     SourceKind = "cultural_events"
	SourceLibraries          SourceKind = "libraries"
	SourceCulturalSpaces     SourceKind = "cultural_spaces"
	SourceFutureHeritages    SourceKind = "future_heritages"
	SourcePublicReservations SourceKind = "public_reservations"
)

// AllSourceKinds lists every known kind in catalogue order.
func AllSourceKinds() []SourceKind {
	return []SourceKind{
		SourceCulturalEvents,
		SourceLibraries,
		SourceCulturalSpaces,
		SourceFutureHeritages,
		SourcePublicReservations,
	}
}

// ParseSourceKind accepts a kind name case-insensitively.
func ParseSourceKind(s string) (SourceKind, bool) {
	k := SourceKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllSourceKinds() {
		if k == known {
			return k, true
		}
	}
	return "", false
}

func (k SourceKind) String() string {
	return string(k)
}

// CoordinateFieldMapping names the raw attributes holding a record's coordinates.
// Swapped means the provider stores longitude under LatField and latitude under LonField.
type CoordinateFieldMapping struct {
	LatField string `json:"lat_field"`
	LonField string `json:"lon_field"`
	Swapped  bool   `json:"swapped"`
}

// MappingFor lets a single mapping serve every record.
func (m CoordinateFieldMapping) MappingFor(SourceKind) CoordinateFieldMapping {
	return m
}

// Extract reads lat/lon from attrs. ok is false when either value is missing or
// not a finite number, and for a mapping without field names.
func (m CoordinateFieldMapping) Extract(attrs map[string]interface{}) (lat, lon float64, ok bool) {
	if m.LatField == "" || m.LonField == "" {
		return 0, 0, false
	}
	lat, ok = toCoordinate(attrs[m.LatField])
	if !ok {
		return 0, 0, false
	}
	lon, ok = toCoordinate(attrs[m.LonField])
	if !ok {
		return 0, 0, false
	}
	if m.Swapped {
		lat, lon = lon, lat
	}
	return lat, lon, true
}

// Store writes p into attrs so that Extract returns p again.
func (m CoordinateFieldMapping) Store(attrs map[string]interface{}, p GeoPoint) {
	lat, lon := p.Latitude, p.Longitude
	if m.Swapped {
		lat, lon = lon, lat
	}
	attrs[m.LatField] = lat
	attrs[m.LonField] = lon
}

func toCoordinate(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, false
		}
		v = strings.TrimSpace(t)
	case []byte:
		if len(t) == 0 {
			return 0, false
		}
		v = string(t)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SourceDescriptor is the static catalogue entry of a source kind.
type SourceDescriptor struct {
	Kind        SourceKind             `json:"id"`
	Table       string                 `json:"-"`
	Mapping     CoordinateFieldMapping `json:"-"`
	NameField   string                 `json:"-"`
	Name        string                 `json:"name"`
	NameEn      string                 `json:"name_en"`
	Description string                 `json:"description"`
}

// SourceRegistry resolves per-kind settings. It is built once at startup.
type SourceRegistry struct {
	order       []SourceKind
	descriptors map[SourceKind]SourceDescriptor
}

// DefaultSources returns the built-in catalogue. swapped overrides the
// transposition flag per kind name.
func DefaultSources(swapped map[string]bool) *SourceRegistry {
	descriptors := []SourceDescriptor{
		{
			Kind:        SourceCulturalEvents,
			Table:       "cultural_events",
			Mapping:     CoordinateFieldMapping{LatField: "lat", LonField: "lot"},
			NameField:   "title",
			Name:        "문화행사",
			NameEn:      "Cultural Events",
			Description: "공연, 전시, 축제 등 서울시 문화행사 정보",
		},
		{
			Kind:        SourceLibraries,
			Table:       "libraries",
			Mapping:     CoordinateFieldMapping{LatField: "latitude", LonField: "longitude"},
			NameField:   "library_name",
			Name:        "도서관",
			NameEn:      "Libraries",
			Description: "공공도서관 및 장애인도서관 정보",
		},
		{
			Kind:        SourceCulturalSpaces,
			Table:       "cultural_spaces",
			Mapping:     CoordinateFieldMapping{LatField: "latitude", LonField: "longitude"},
			NameField:   "fac_name",
			Name:        "문화공간",
			NameEn:      "Cultural Spaces",
			Description: "박물관, 미술관, 공연장 등 문화시설 정보",
		},
		{
			Kind:        SourceFutureHeritages,
			Table:       "future_heritages",
			Mapping:     CoordinateFieldMapping{LatField: "latitude", LonField: "longitude"},
			NameField:   "name",
			Name:        "미래유산",
			NameEn:      "Future Heritages",
			Description: "서울시 미래유산 정보",
		},
		{
			Kind:        SourcePublicReservations,
			Table:       "public_reservations",
			Mapping:     CoordinateFieldMapping{LatField: "y_coord", LonField: "x_coord"},
			NameField:   "svcnm",
			Name:        "공공예약",
			NameEn:      "Public Reservations",
			Description: "공공시설 예약 서비스 정보",
		},
	}

	for i := range descriptors {
		if swapped[string(descriptors[i].Kind)] {
			descriptors[i].Mapping.Swapped = true
		}
	}
	return NewSourceRegistry(descriptors...)
}

// NewSourceRegistry keeps descriptors in the given order.
func NewSourceRegistry(descriptors ...SourceDescriptor) *SourceRegistry {
	r := &SourceRegistry{
		order:       make([]SourceKind, 0, len(descriptors)),
		descriptors: make(map[SourceKind]SourceDescriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if _, dup := r.descriptors[d.Kind]; !dup {
			r.order = append(r.order, d.Kind)
		}
		r.descriptors[d.Kind] = d
	}
	return r
}

// Kinds returns registered kinds in order.
func (r *SourceRegistry) Kinds() []SourceKind {
	out := make([]SourceKind, len(r.order))
	copy(out, r.order)
	return out
}

func (r *SourceRegistry) Descriptor(kind SourceKind) (SourceDescriptor, bool) {
	d, ok := r.descriptors[kind]
	return d, ok
}

func (r *SourceRegistry) Descriptors() []SourceDescriptor {
	out := make([]SourceDescriptor, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.descriptors[k])
	}
	return out
}

// MappingFor returns the coordinate mapping of kind; unknown kinds get an empty
// mapping, which never extracts.
func (r *SourceRegistry) MappingFor(kind SourceKind) CoordinateFieldMapping {
	return r.descriptors[kind].Mapping
}

// Parse resolves a category name against the registry.
func (r *SourceRegistry) Parse(s string) (SourceKind, bool) {
	k, ok := ParseSourceKind(s)
	if !ok {
		return "", false
	}
	_, ok = r.descriptors[k]
	return k, ok
}
