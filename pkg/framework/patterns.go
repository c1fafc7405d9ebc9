// Package framework defines the core pattern and relationship types, rule
// evaluation primitives, and persistence contracts used by the P3IF engine.
package framework

import (
	"sort"
	"time"
)

// PatternType identifies the dimension a pattern belongs to. The three
// variants are a fixed domain invariant, not an open set.
type PatternType string

// Supported pattern dimensions.
const (
	// PatternProperty identifies a quality or attribute the framework tracks.
	PatternProperty PatternType = "property"
	// PatternProcess identifies an activity or transformation.
	PatternProcess PatternType = "process"
	// PatternPerspective identifies a viewpoint or stakeholder frame.
	PatternPerspective PatternType = "perspective"
)

// PatternTypes returns the closed set of dimensions in canonical order.
func PatternTypes() []PatternType {
	return []PatternType{PatternProperty, PatternProcess, PatternPerspective}
}

// Valid reports whether t names one of the three dimensions.
func (t PatternType) Valid() bool {
	switch t {
	case PatternProperty, PatternProcess, PatternPerspective:
		return true
	}
	return false
}

// Pattern is a named, typed unit of domain knowledge in one of the three
// fixed variants. Identity is the opaque ID; the store assigns one at
// registration when absent.
type Pattern struct {
	ID           string         `json:"id"`
	Type         PatternType    `json:"type"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Domain       string         `json:"domain,omitempty"`
	Tags         []string       `json:"tags"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	QualityScore float64        `json:"quality_score"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Validate checks the structural constraints that must hold before a pattern
// may be registered.
func (p Pattern) Validate() error {
	if !p.Type.Valid() {
		return InvalidPatternTypeError{Type: p.Type}
	}
	if p.Name == "" {
		return EmptyNameError{ID: p.ID}
	}
	return nil
}

// Deprecated reports whether the pattern carries the deprecation marker in
// its metadata.
func (p Pattern) Deprecated() bool {
	v, ok := p.Metadata["deprecated"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Clone returns a deep copy; tag and metadata mutations on the copy never
// reach the original.
func (p Pattern) Clone() Pattern {
	cp := p
	if p.Tags != nil {
		cp.Tags = append([]string(nil), p.Tags...)
	}
	cp.Metadata = cloneMetadata(p.Metadata)
	return cp
}

// NormalizeTags deduplicates and sorts a tag set; tags are a set, insertion
// order is irrelevant.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Relationship is a weighted link across up to three patterns, one per
// dimension slot. Zero, one, two, or three slots may be populated.
type Relationship struct {
	ID            string         `json:"id"`
	PropertyID    *string        `json:"property_id"`
	ProcessID     *string        `json:"process_id"`
	PerspectiveID *string        `json:"perspective_id"`
	Strength      float64        `json:"strength"`
	Confidence    float64        `json:"confidence"`
	Bidirectional bool           `json:"bidirectional"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewRelationship constructs a relationship linking up to three patterns.
// Confidence defaults to 1.0 and bidirectional to true. Out-of-range scores
// fail here, before the value can reach a store.
func NewRelationship(propertyID, processID, perspectiveID *string, strength float64) (Relationship, error) {
	rel := Relationship{
		PropertyID:    propertyID,
		ProcessID:     processID,
		PerspectiveID: perspectiveID,
		Strength:      strength,
		Confidence:    1.0,
		Bidirectional: true,
	}
	if err := rel.Validate(); err != nil {
		return Relationship{}, err
	}
	return rel, nil
}

// Validate checks the score range invariants.
func (r Relationship) Validate() error {
	if r.Strength < 0 || r.Strength > 1 {
		return OutOfRangeError{Field: "strength", Value: r.Strength}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return OutOfRangeError{Field: "confidence", Value: r.Confidence}
	}
	return nil
}

// Slot returns the reference slot matching the given dimension, or nil when
// that slot is unpopulated.
func (r Relationship) Slot(t PatternType) *string {
	switch t {
	case PatternProperty:
		return r.PropertyID
	case PatternProcess:
		return r.ProcessID
	case PatternPerspective:
		return r.PerspectiveID
	}
	return nil
}

// SetSlot assigns the reference slot matching the given dimension.
func (r *Relationship) SetSlot(t PatternType, id *string) {
	switch t {
	case PatternProperty:
		r.PropertyID = id
	case PatternProcess:
		r.ProcessID = id
	case PatternPerspective:
		r.PerspectiveID = id
	}
}

// References returns the populated slots keyed by dimension.
func (r Relationship) References() map[PatternType]string {
	refs := make(map[PatternType]string, 3)
	for _, t := range PatternTypes() {
		if id := r.Slot(t); id != nil && *id != "" {
			refs[t] = *id
		}
	}
	return refs
}

// Clone returns a deep copy of the relationship.
func (r Relationship) Clone() Relationship {
	cp := r
	cp.PropertyID = cloneStringPtr(r.PropertyID)
	cp.ProcessID = cloneStringPtr(r.ProcessID)
	cp.PerspectiveID = cloneStringPtr(r.PerspectiveID)
	cp.Metadata = cloneMetadata(r.Metadata)
	return cp
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the JSON-shaped subset of values (maps, slices,
// scalars); other types are shared as-is.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMetadata(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
