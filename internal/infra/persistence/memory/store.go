// Package memory provides a map-backed implementation of the persistence
// contract for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"sync"

	"p3if/pkg/framework"
)

// Compile-time contract assertions.
var (
	_ framework.PersistentStore = (*Store)(nil)
	_ framework.Lister          = (*Store)(nil)
)

// Store holds patterns and relationships in maps guarded by one mutex.
type Store struct {
	mu            sync.RWMutex
	patterns      map[string]framework.Pattern
	relationships map[string]framework.Relationship
}

// NewStore constructs an empty in-memory persistent store.
func NewStore() *Store {
	return &Store{
		patterns:      make(map[string]framework.Pattern),
		relationships: make(map[string]framework.Relationship),
	}
}

// SavePattern upserts a pattern record.
func (s *Store) SavePattern(_ context.Context, p framework.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[p.ID] = p.Clone()
	return nil
}

// GetPattern retrieves a pattern by id.
func (s *Store) GetPattern(_ context.Context, id string) (framework.Pattern, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[id]
	if !ok {
		return framework.Pattern{}, false, nil
	}
	return p.Clone(), true, nil
}

// GetPatternsByType returns all stored patterns of the given dimension.
func (s *Store) GetPatternsByType(_ context.Context, t framework.PatternType) ([]framework.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]framework.Pattern, 0)
	for _, p := range s.patterns {
		if p.Type == t {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeletePattern removes a pattern; absence is (false, nil).
func (s *Store) DeletePattern(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patterns[id]; !ok {
		return false, nil
	}
	delete(s.patterns, id)
	return true, nil
}

// SaveRelationship upserts a relationship record.
func (s *Store) SaveRelationship(_ context.Context, r framework.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationships[r.ID] = r.Clone()
	return nil
}

// GetRelationship retrieves a relationship by id.
func (s *Store) GetRelationship(_ context.Context, id string) (framework.Relationship, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.relationships[id]
	if !ok {
		return framework.Relationship{}, false, nil
	}
	return r.Clone(), true, nil
}

// DeleteRelationship removes a relationship; absence is (false, nil).
func (s *Store) DeleteRelationship(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.relationships[id]; !ok {
		return false, nil
	}
	delete(s.relationships, id)
	return true, nil
}

// Clear drops all stored records.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = make(map[string]framework.Pattern)
	s.relationships = make(map[string]framework.Relationship)
	return nil
}

// ListPatterns returns all stored patterns sorted by id.
func (s *Store) ListPatterns(_ context.Context) ([]framework.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]framework.Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListRelationships returns all stored relationships sorted by id.
func (s *Store) ListRelationships(_ context.Context) ([]framework.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]framework.Relationship, 0, len(s.relationships))
	for _, r := range s.relationships {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
