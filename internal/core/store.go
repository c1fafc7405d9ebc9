// Package core implements the in-memory pattern/relationship store: primary
// maps, secondary indexes, invariant enforcement, cached aggregate metrics,
// hot-swap substitution, and multi-source merge.
package core

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"p3if/pkg/framework"
)

// Store owns the pattern and relationship maps and every secondary index.
// One mutex serializes all mutations; reads take the read side. Returned
// values are always clones — the store exclusively owns its objects.
type Store struct {
	mu sync.RWMutex

	patterns      map[string]Pattern
	relationships map[string]Relationship

	byType        map[PatternType]map[string]struct{}
	byDomain      map[string]map[string]struct{}
	byTag         map[string]map[string]struct{}
	relsByPattern map[string]map[string]struct{}

	engine *RulesEngine
	nowFn  func() time.Time
	cache  metricsCache
}

// StoreOption configures a Store at construction.
type StoreOption func(*Store)

// WithNowFunc overrides the time source, mainly for tests.
func WithNowFunc(fn func() time.Time) StoreOption {
	return func(s *Store) { s.nowFn = fn }
}

// WithMetricsTTL overrides the metrics cache timeout.
func WithMetricsTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.cache.ttl = ttl }
}

// NewStore constructs an empty store. The engine carries extension rules
// evaluated by Validate alongside the built-in structural rules; nil means
// structural rules only.
func NewStore(engine *RulesEngine, opts ...StoreOption) *Store {
	s := &Store{
		patterns:      make(map[string]Pattern),
		relationships: make(map[string]Relationship),
		byType:        make(map[PatternType]map[string]struct{}),
		byDomain:      make(map[string]map[string]struct{}),
		byTag:         make(map[string]map[string]struct{}),
		relsByPattern: make(map[string]map[string]struct{}),
		engine:        engine,
		nowFn:         func() time.Time { return time.Now().UTC() },
		cache:         metricsCache{ttl: DefaultMetricsTTL},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// AddPattern registers a pattern, updating the type, domain, and tag
// indexes. Returns the stored copy with id and timestamps assigned.
func (s *Store) AddPattern(p Pattern) (Pattern, error) {
	if err := p.Validate(); err != nil {
		return Pattern{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = newID()
	}
	if _, exists := s.patterns[p.ID]; exists {
		return Pattern{}, framework.DuplicateIDError{Kind: framework.KindPattern, ID: p.ID}
	}

	now := s.nowFn()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Tags = framework.NormalizeTags(p.Tags)

	stored := p.Clone()
	s.patterns[stored.ID] = stored
	s.indexPattern(stored)
	s.cache.invalidate()
	return stored.Clone(), nil
}

// GetPattern looks up a pattern by id.
func (s *Store) GetPattern(id string) (Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[id]
	if !ok {
		return Pattern{}, false
	}
	return p.Clone(), true
}

// RemovePattern deletes a pattern from the primary map and every index.
// Absence is (false, nil). Removal is refused while relationships still
// reference the pattern; hot-swap or remove them first.
func (s *Store) RemovePattern(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[id]
	if !ok {
		return false, nil
	}
	if refs := s.relsByPattern[id]; len(refs) > 0 {
		return false, framework.PatternInUseError{ID: id, Relationships: len(refs)}
	}

	delete(s.patterns, id)
	s.deindexPattern(p)
	delete(s.relsByPattern, id)
	s.cache.invalidate()
	return true, nil
}

// PatternsByType returns all patterns of the given dimension, sorted by id.
func (s *Store) PatternsByType(t PatternType) []Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.materializePatterns(s.byType[t])
}

// PatternsByDomain returns all patterns in the given domain, sorted by id.
func (s *Store) PatternsByDomain(domain string) []Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.materializePatterns(s.byDomain[domain])
}

// PatternsByTag returns all patterns carrying the given tag, sorted by id.
func (s *Store) PatternsByTag(tag string) []Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.materializePatterns(s.byTag[tag])
}

// SearchPatterns returns patterns whose name or description contains the
// query, case-insensitively. Linear scan; the domain scale keeps this cheap.
func (s *Store) SearchPatterns(query string) []Pattern {
	q := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Pattern, 0)
	for _, p := range s.patterns {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p.Clone())
		}
	}
	sortPatterns(out)
	return out
}

// ListPatterns returns every pattern, sorted by id.
func (s *Store) ListPatterns() []Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p.Clone())
	}
	sortPatterns(out)
	return out
}

// AddRelationship validates every populated reference against the current
// pattern map and inserts atomically: a dangling reference rejects the whole
// relationship with no partial index writes.
func (s *Store) AddRelationship(r Relationship) (Relationship, error) {
	if err := r.Validate(); err != nil {
		return Relationship{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = newID()
	}
	if _, exists := s.relationships[r.ID]; exists {
		return Relationship{}, framework.DuplicateIDError{Kind: framework.KindRelationship, ID: r.ID}
	}
	for slot, patternID := range r.References() {
		p, ok := s.patterns[patternID]
		if !ok || p.Type != slot {
			return Relationship{}, framework.DanglingReferenceError{RelationshipID: r.ID, Slot: slot, PatternID: patternID}
		}
	}

	now := s.nowFn()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	stored := r.Clone()
	s.relationships[stored.ID] = stored
	for _, patternID := range stored.References() {
		s.indexRelationship(patternID, stored.ID)
	}
	s.cache.invalidate()
	return stored.Clone(), nil
}

// GetRelationship looks up a relationship by id.
func (s *Store) GetRelationship(id string) (Relationship, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.relationships[id]
	if !ok {
		return Relationship{}, false
	}
	return r.Clone(), true
}

// RemoveRelationship deletes a relationship and its index entries. Absence
// is a normal false result.
func (s *Store) RemoveRelationship(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.relationships[id]
	if !ok {
		return false
	}
	delete(s.relationships, id)
	for _, patternID := range r.References() {
		s.deindexRelationship(patternID, id)
	}
	s.cache.invalidate()
	return true
}

// RelationshipsByPattern returns every relationship whose property, process,
// or perspective slot equals the given pattern id, sorted by id.
func (s *Store) RelationshipsByPattern(patternID string) []Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.relsByPattern[patternID]
	out := make([]Relationship, 0, len(ids))
	for id := range ids {
		if r, ok := s.relationships[id]; ok {
			out = append(out, r.Clone())
		}
	}
	sortRelationships(out)
	return out
}

// ListRelationships returns every relationship, sorted by id.
func (s *Store) ListRelationships() []Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Relationship, 0, len(s.relationships))
	for _, r := range s.relationships {
		out = append(out, r.Clone())
	}
	sortRelationships(out)
	return out
}

// index maintenance; callers hold the write lock.

func (s *Store) indexPattern(p Pattern) {
	addToIndex(s.byType, p.Type, p.ID)
	if p.Domain != "" {
		addToIndex(s.byDomain, p.Domain, p.ID)
	}
	for _, tag := range p.Tags {
		addToIndex(s.byTag, tag, p.ID)
	}
}

func (s *Store) deindexPattern(p Pattern) {
	removeFromIndex(s.byType, p.Type, p.ID)
	if p.Domain != "" {
		removeFromIndex(s.byDomain, p.Domain, p.ID)
	}
	for _, tag := range p.Tags {
		removeFromIndex(s.byTag, tag, p.ID)
	}
}

func (s *Store) indexRelationship(patternID, relationshipID string) {
	set, ok := s.relsByPattern[patternID]
	if !ok {
		set = make(map[string]struct{})
		s.relsByPattern[patternID] = set
	}
	set[relationshipID] = struct{}{}
}

func (s *Store) deindexRelationship(patternID, relationshipID string) {
	set, ok := s.relsByPattern[patternID]
	if !ok {
		return
	}
	delete(set, relationshipID)
	if len(set) == 0 {
		delete(s.relsByPattern, patternID)
	}
}

func addToIndex[K comparable](index map[K]map[string]struct{}, key K, id string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[id] = struct{}{}
}

func removeFromIndex[K comparable](index map[K]map[string]struct{}, key K, id string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(index, key)
	}
}

func (s *Store) materializePatterns(ids map[string]struct{}) []Pattern {
	out := make([]Pattern, 0, len(ids))
	for id := range ids {
		if p, ok := s.patterns[id]; ok {
			out = append(out, p.Clone())
		}
	}
	sortPatterns(out)
	return out
}

func sortPatterns(patterns []Pattern) {
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].ID < patterns[j].ID })
}

func sortRelationships(relationships []Relationship) {
	sort.Slice(relationships, func(i, j int) bool { return relationships[i].ID < relationships[j].ID })
}

// lockedView adapts the live maps to framework.FrameworkView. Valid only
// while the caller holds at least the read lock.
type lockedView struct {
	s *Store
}

func (v lockedView) ListPatterns() []Pattern {
	out := make([]Pattern, 0, len(v.s.patterns))
	for _, p := range v.s.patterns {
		out = append(out, p.Clone())
	}
	sortPatterns(out)
	return out
}

func (v lockedView) ListRelationships() []Relationship {
	out := make([]Relationship, 0, len(v.s.relationships))
	for _, r := range v.s.relationships {
		out = append(out, r.Clone())
	}
	sortRelationships(out)
	return out
}

func (v lockedView) FindPattern(id string) (Pattern, bool) {
	p, ok := v.s.patterns[id]
	if !ok {
		return Pattern{}, false
	}
	return p.Clone(), true
}

func (v lockedView) FindRelationship(id string) (Relationship, bool) {
	r, ok := v.s.relationships[id]
	if !ok {
		return Relationship{}, false
	}
	return r.Clone(), true
}
