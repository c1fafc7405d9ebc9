// Package jsonfile persists the framework as a single JSON export document
// on disk, rewritten after every mutation.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"p3if/pkg/framework"
)

// Compile-time contract assertions.
var (
	_ framework.PersistentStore = (*Store)(nil)
	_ framework.Lister          = (*Store)(nil)
)

// Store keeps the working copy in memory and snapshots the full document to
// the file after each successful mutation. An unreadable or corrupt file
// falls back to an empty store; the engine's in-memory invariants never
// depend on what the file held.
type Store struct {
	mu            sync.Mutex
	path          string
	patterns      map[string]framework.Pattern
	relationships map[string]framework.Relationship
}

// NewStore opens (or creates) a JSON-document store at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "p3if.json"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	s := &Store{
		path:          path,
		patterns:      make(map[string]framework.Pattern),
		relationships: make(map[string]framework.Relationship),
	}
	s.load()
	return s, nil
}

// load hydrates from the file; any read or decode failure leaves the store
// empty rather than surfacing corrupt durable data.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var doc framework.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return
	}
	for _, p := range doc.Patterns {
		if p.ID != "" {
			s.patterns[p.ID] = p
		}
	}
	for _, r := range doc.Relationships {
		if r.ID != "" {
			s.relationships[r.ID] = r
		}
	}
}

// persist writes the full document; callers hold the mutex.
func (s *Store) persist() error {
	doc := framework.Document{
		Patterns:      make([]framework.Pattern, 0, len(s.patterns)),
		Relationships: make([]framework.Relationship, 0, len(s.relationships)),
		Metadata: framework.DocumentMetadata{
			ExportedAt:    time.Now().UTC(),
			SchemaVersion: framework.SchemaVersion,
		},
	}
	for _, p := range s.patterns {
		doc.Patterns = append(doc.Patterns, p)
	}
	for _, r := range s.relationships {
		doc.Relationships = append(doc.Relationships, r)
	}
	sort.Slice(doc.Patterns, func(i, j int) bool { return doc.Patterns[i].ID < doc.Patterns[j].ID })
	sort.Slice(doc.Relationships, func(i, j int) bool { return doc.Relationships[i].ID < doc.Relationships[j].ID })

	data, err := doc.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Path returns the configured document path.
func (s *Store) Path() string { return s.path }

// SavePattern upserts a pattern and snapshots the document.
func (s *Store) SavePattern(_ context.Context, p framework.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns[p.ID] = p.Clone()
	return s.persist()
}

// GetPattern retrieves a pattern by id.
func (s *Store) GetPattern(_ context.Context, id string) (framework.Pattern, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[id]
	if !ok {
		return framework.Pattern{}, false, nil
	}
	return p.Clone(), true, nil
}

// GetPatternsByType returns all stored patterns of the given dimension.
func (s *Store) GetPatternsByType(_ context.Context, t framework.PatternType) ([]framework.Pattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	return true, s.persist()
}

// SaveRelationship upserts a relationship and snapshots the document.
func (s *Store) SaveRelationship(_ context.Context, r framework.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationships[r.ID] = r.Clone()
	return s.persist()
}

// GetRelationship retrieves a relationship by id.
func (s *Store) GetRelationship(_ context.Context, id string) (framework.Relationship, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	return true, s.persist()
}

// Clear drops all stored records and snapshots the empty document.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = make(map[string]framework.Pattern)
	s.relationships = make(map[string]framework.Relationship)
	return s.persist()
}

// ListPatterns returns all stored patterns sorted by id.
func (s *Store) ListPatterns(_ context.Context) ([]framework.Pattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]framework.Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListRelationships returns all stored relationships sorted by id.
func (s *Store) ListRelationships(_ context.Context) ([]framework.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]framework.Relationship, 0, len(s.relationships))
	for _, r := range s.relationships {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
