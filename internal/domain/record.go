package domain

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

const (
	FieldSourceKind        = "source_kind"
	FieldDistanceMeters    = "distance_meters"
	FieldDistanceFormatted = "distance_formatted"
)

// CandidateRecord is an opaque attribute map produced by a data store, tagged with
// its source kind. Only the distance fields are ever set by the search engine.
type CandidateRecord struct {
	Kind              SourceKind
	Attributes        map[string]interface{}
	DistanceMeters    *float64
	DistanceFormatted *string
}

// NewCandidateRecord tags attrs with kind.
func NewCandidateRecord(kind SourceKind, attrs map[string]interface{}) CandidateRecord {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	return CandidateRecord{Kind: kind, Attributes: attrs}
}

// WithDistance returns a copy of r carrying meters. Attributes are shared.
func (r CandidateRecord) WithDistance(meters float64) CandidateRecord {
	r.DistanceMeters = &meters
	return r
}

// WithFormattedDistance returns a copy of r carrying the display string.
func (r CandidateRecord) WithFormattedDistance(s string) CandidateRecord {
	r.DistanceFormatted = &s
	return r
}

// Attr returns a string view of an attribute, or "" when absent.
func (r CandidateRecord) Attr(name string) string {
	v, ok := r.Attributes[name]
	if !ok || v == nil {
		return ""
	}
	return cast.ToString(v)
}

// MarshalJSON flattens attributes and the derived fields into one object.
func (r CandidateRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Attributes)+3)
	for k, v := range r.Attributes {
		flat[k] = v
	}
	flat[FieldSourceKind] = r.Kind
	if r.DistanceMeters != nil {
		flat[FieldDistanceMeters] = *r.DistanceMeters
	}
	if r.DistanceFormatted != nil {
		flat[FieldDistanceFormatted] = *r.DistanceFormatted
	}
	return json.Marshal(flat)
}

func (r *CandidateRecord) UnmarshalJSON(data []byte) error {
	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	*r = CandidateRecord{}
	if v, ok := flat[FieldSourceKind]; ok {
		s, isString := v.(string)
		if !isString {
			return fmt.Errorf("record %s must be a string, got %T", FieldSourceKind, v)
		}
		r.Kind = SourceKind(s)
		delete(flat, FieldSourceKind)
	}
	if v, ok := flat[FieldDistanceMeters]; ok {
		if v != nil {
			meters, err := cast.ToFloat64E(v)
			if err != nil {
				return fmt.Errorf("record %s: %w", FieldDistanceMeters, err)
			}
			r.DistanceMeters = &meters
		}
		delete(flat, FieldDistanceMeters)
	}
	if v, ok := flat[FieldDistanceFormatted]; ok {
		if s, isString := v.(string); isString {
			r.DistanceFormatted = &s
		}
		delete(flat, FieldDistanceFormatted)
	}
	r.Attributes = flat
	return nil
}
