package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"p3if/pkg/framework"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(nil)
}

func mustAddPattern(t *testing.T, s *Store, p Pattern) Pattern {
	t.Helper()
	stored, err := s.AddPattern(p)
	if err != nil {
		t.Fatalf("add pattern %q: %v", p.Name, err)
	}
	return stored
}

func mustAddRelationship(t *testing.T, s *Store, r Relationship) Relationship {
	t.Helper()
	stored, err := s.AddRelationship(r)
	if err != nil {
		t.Fatalf("add relationship: %v", err)
	}
	return stored
}

func strPtr(s string) *string { return &s }

func TestAddPatternAssignsIDAndTimestamps(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewStore(nil, WithNowFunc(func() time.Time { return fixed }))

	stored := mustAddPattern(t, s, Pattern{Type: PatternProperty, Name: "encryption", Tags: []string{"b", "a", "b"}})
	if stored.ID == "" {
		t.Fatal("id not assigned")
	}
	if !stored.CreatedAt.Equal(fixed) || !stored.UpdatedAt.Equal(fixed) {
		t.Fatalf("timestamps = %v / %v, want %v", stored.CreatedAt, stored.UpdatedAt, fixed)
	}
	if len(stored.Tags) != 2 || stored.Tags[0] != "a" || stored.Tags[1] != "b" {
		t.Fatalf("tags not normalized: %v", stored.Tags)
	}

	got, ok := s.GetPattern(stored.ID)
	if !ok || got.Name != "encryption" {
		t.Fatalf("lookup failed: %v %v", got, ok)
	}
}

func TestAddPatternPreservesImportedCreatedAt(t *testing.T) {
	created := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(t)
	stored := mustAddPattern(t, s, Pattern{ID: "ext-1", Type: PatternProcess, Name: "audit", CreatedAt: created})
	if !stored.CreatedAt.Equal(created) {
		t.Fatalf("created at overwritten: %v", stored.CreatedAt)
	}
	if stored.UpdatedAt.Before(created) {
		t.Fatal("updated at not refreshed")
	}
}

func TestAddPatternDuplicateID(t *testing.T) {
	s := newTestStore(t)
	mustAddPattern(t, s, Pattern{ID: "p1", Type: PatternProperty, Name: "one"})

	_, err := s.AddPattern(Pattern{ID: "p1", Type: PatternProperty, Name: "two"})
	var dup framework.DuplicateIDError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateIDError, got %v", err)
	}
	if dup.ID != "p1" || dup.Kind != framework.KindPattern {
		t.Fatalf("unexpected error payload: %+v", dup)
	}

	// the original record is untouched
	got, _ := s.GetPattern("p1")
	if got.Name != "one" {
		t.Fatalf("original overwritten: %q", got.Name)
	}
}

func TestAddPatternRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AddPattern(Pattern{Type: "widget", Name: "x"}); err == nil {
		t.Fatal("invalid type accepted")
	}
	if _, err := s.AddPattern(Pattern{Type: PatternProperty}); err == nil {
		t.Fatal("empty name accepted")
	}
	if got := s.ListPatterns(); len(got) != 0 {
		t.Fatalf("rejected patterns leaked into store: %v", got)
	}
}

func TestSecondaryIndexes(t *testing.T) {
	s := newTestStore(t)
	p1 := mustAddPattern(t, s, Pattern{Type: PatternProperty, Name: "enc", Domain: "security", Tags: []string{"crypto"}})
	p2 := mustAddPattern(t, s, Pattern{Type: PatternProperty, Name: "auth", Domain: "security"})
	p3 := mustAddPattern(t, s, Pattern{Type: PatternProcess, Name: "deploy", Domain: "ops", Tags: []string{"crypto"}})

	if got := s.PatternsByType(PatternProperty); len(got) != 2 {
		t.Fatalf("by type = %d, want 2", len(got))
	}
	if got := s.PatternsByDomain("security"); len(got) != 2 {
		t.Fatalf("by domain = %d, want 2", len(got))
	}
	if got := s.PatternsByTag("crypto"); len(got) != 2 {
		t.Fatalf("by tag = %d, want 2", len(got))
	}
	if got := s.PatternsByDomain("missing"); len(got) != 0 {
		t.Fatalf("unknown domain returned %d", len(got))
	}

	if ok, err := s.RemovePattern(p1.ID); !ok || err != nil {
		t.Fatalf("remove: %v %v", ok, err)
	}
	if got := s.PatternsByTag("crypto"); len(got) != 1 || got[0].ID != p3.ID {
		t.Fatalf("tag index not cleaned: %v", got)
	}
	if got := s.PatternsByDomain("security"); len(got) != 1 || got[0].ID != p2.ID {
		t.Fatalf("domain index not cleaned: %v", got)
	}
}

func TestRemovePatternGuards(t *testing.T) {
	s := newTestStore(t)
	prop := mustAddPattern(t, s, Pattern{Type: PatternProperty, Name: "enc"})
	rel := mustAddRelationship(t, s, Relationship{PropertyID: strPtr(prop.ID), Strength: 0.5, Confidence: 1})

	_, err := s.RemovePattern(prop.ID)
	var inUse framework.PatternInUseError
	if !errors.As(err, &inUse) {
		t.Fatalf("expected PatternInUseError, got %v", err)
	}
	if inUse.Relationships != 1 {
		t.Fatalf("referencing count = %d, want 1", inUse.Relationships)
	}
	if _, ok := s.GetPattern(prop.ID); !ok {
		t.Fatal("pattern removed despite guard")
	}

	if !s.RemoveRelationship(rel.ID) {
		t.Fatal("remove relationship failed")
	}
	if ok, err := s.RemovePattern(prop.ID); !ok || err != nil {
		t.Fatalf("remove after unreference: %v %v", ok, err)
	}
	// absent now; second removal is a plain false
	if ok, err := s.RemovePattern(prop.ID); ok || err != nil {
		t.Fatalf("second removal = %v %v, want false nil", ok, err)
	}
}

func TestSearchPatterns(t *testing.T) {
	s := newTestStore(t)
	mustAddPattern(t, s, Pattern{Type: PatternProperty, Name: "Data Encryption"})
	mustAddPattern(t, s, Pattern{Type: PatternProcess, Name: "deploy", Description: "ENCRYPTS artifacts in transit"})
	mustAddPattern(t, s, Pattern{Type: PatternPerspective, Name: "auditor"})

	got := s.SearchPatterns("encrypt")
	if len(got) != 2 {
		t.Fatalf("search hits = %d, want 2", len(got))
	}
	if got := s.SearchPatterns("zzz"); len(got) != 0 {
		t.Fatalf("bogus query returned %d", len(got))
	}
}

func TestAddRelationshipReferentialAtomicity(t *testing.T) {
	s := newTestStore(t)
	prop := mustAddPattern(t, s, Pattern{Type: PatternProperty, Name: "enc"})

	_, err := s.AddRelationship(Relationship{PropertyID: strPtr(prop.ID), ProcessID: strPtr("missing"), Strength: 0.5, Confidence: 1})
	var dangling framework.DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingReferenceError, got %v", err)
	}
	if dangling.Slot != PatternProcess || dangling.PatternID != "missing" {
		t.Fatalf("unexpected error payload: %+v", dangling)
	}
	// no partial index writes: the valid slot must not be indexed either
	if got := s.RelationshipsByPattern(prop.ID); len(got) != 0 {
		t.Fatalf("partial index write detected: %v", got)
	}
	if got := s.ListRelationships(); len(got) != 0 {
		t.Fatalf("rejected relationship stored: %v", got)
	}
}

func TestAddRelationshipRejectsTypeMismatchedSlot(t *testing.T) {
	s := newTestStore(t)
	proc := mustAddPattern(t, s, Pattern{Type: PatternProcess, Name: "deploy"})

	// a process pattern placed in the property slot is dangling
	_, err := s.AddRelationship(Relationship{PropertyID: strPtr(proc.ID), Strength: 0.5, Confidence: 1})
	var dangling framework.DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingReferenceError, got %v", err)
	}
}

func TestRelationshipsByPattern(t *testing.T) {
	s := newTestStore(t)
	prop := mustAddPattern(t, s, Pattern{Type: PatternProperty, Name: "enc"})
	proc := mustAddPattern(t, s, Pattern{Type: PatternProcess, Name: "deploy"})

	r1 := mustAddRelationship(t, s, Relationship{PropertyID: strPtr(prop.ID), ProcessID: strPtr(proc.ID), Strength: 0.5, Confidence: 1})
	r2 := mustAddRelationship(t, s, Relationship{PropertyID: strPtr(prop.ID), Strength: 0.2, Confidence: 1})

	if got := s.RelationshipsByPattern(prop.ID); len(got) != 2 {
		t.Fatalf("by pattern = %d, want 2", len(got))
	}
	if got := s.RelationshipsByPattern(proc.ID); len(got) != 1 || got[0].ID != r1.ID {
		t.Fatalf("by pattern = %v", got)
	}

	s.RemoveRelationship(r2.ID)
	if got := s.RelationshipsByPattern(prop.ID); len(got) != 1 {
		t.Fatalf("index not cleaned after removal: %v", got)
	}
}

func TestStoredCopiesAreIsolated(t *testing.T) {
	s := newTestStore(t)
	p := Pattern{Type: PatternProperty, Name: "enc", Metadata: map[string]any{"k": "v"}}
	stored := mustAddPattern(t, s, p)

	// mutating the caller's copy must not reach the store
	stored.Metadata["k"] = "mutated"
	p.Metadata["k"] = "mutated too"

	got, _ := s.GetPattern(stored.ID)
	if got.Metadata["k"] != "v" {
		t.Fatalf("store shares metadata with callers: %v", got.Metadata)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := newTestStore(t)
	seed := mustAddPattern(t, s, Pattern{Type: PatternProperty, Name: "seed", Domain: "security"})

	const writers, readers = 8, 8
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				p, err := s.AddPattern(Pattern{Type: PatternProcess, Name: fmt.Sprintf("proc-%d-%d", w, i), Domain: "ops"})
				if err != nil {
					t.Errorf("add pattern: %v", err)
					return
				}
				if _, err := s.AddRelationship(Relationship{PropertyID: strPtr(seed.ID), ProcessID: strPtr(p.ID), Strength: 0.5, Confidence: 1}); err != nil {
					t.Errorf("add relationship: %v", err)
					return
				}
			}
		}(w)
	}
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.ListPatterns()
				s.PatternsByDomain("ops")
				s.SearchPatterns("proc")
				s.RelationshipsByPattern(seed.ID)
			}
		}()
	}
	wg.Wait()

	if got := len(s.ListPatterns()); got != writers*25+1 {
		t.Fatalf("patterns = %d, want %d", got, writers*25+1)
	}
	if got := len(s.ListRelationships()); got != writers*25 {
		t.Fatalf("relationships = %d, want %d", got, writers*25)
	}
}
