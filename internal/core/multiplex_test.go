package core

import (
	"context"
	"testing"
)

func TestMultiplexIntegratesAndCounts(t *testing.T) {
	s := newTestStore(t)
	existing := mustAddPattern(t, s, Pattern{ID: "p-dup", Type: PatternProperty, Name: "enc", Domain: "security"})

	external := ExternalFramework{
		Patterns: map[PatternType][]Pattern{
			PatternProperty: {
				{Name: "auth", Domain: "security"},                // new
				{ID: "p-dup", Name: "other", Domain: "elsewhere"}, // id collision
				{Name: "enc", Domain: "security"},                 // name+domain collision
			},
			PatternProcess: {
				{Name: "deploy"}, // type filled from map key
			},
		},
		Relationships: []Relationship{
			{PropertyID: strPtr(existing.ID), Strength: 0.5, Confidence: 1}, // ok
			{ProcessID: strPtr("missing"), Strength: 0.5, Confidence: 1},    // dangling: skipped, not a conflict
			{Strength: 2.0},                                                 // invalid score: skipped
		},
	}

	sum, err := s.MultiplexFrameworks(context.Background(), external)
	if err != nil {
		t.Fatalf("multiplex: %v", err)
	}
	if sum.Integrated != 3 {
		t.Fatalf("integrated = %d, want 3", sum.Integrated)
	}
	if sum.Skipped != 4 {
		t.Fatalf("skipped = %d, want 4", sum.Skipped)
	}
	if sum.Conflicts != 2 {
		t.Fatalf("conflicts = %d, want 2", sum.Conflicts)
	}

	// the id collision left the original untouched
	got, _ := s.GetPattern("p-dup")
	if got.Name != "enc" {
		t.Fatalf("existing pattern overwritten: %q", got.Name)
	}
	if got := s.PatternsByType(PatternProcess); len(got) != 1 || got[0].Type != PatternProcess {
		t.Fatalf("process pattern not typed from its bucket: %v", got)
	}
}

func TestMultiplexTypeDisagreementIsConflict(t *testing.T) {
	s := newTestStore(t)
	external := ExternalFramework{
		Patterns: map[PatternType][]Pattern{
			PatternProperty: {{Type: PatternProcess, Name: "mislabeled"}},
		},
	}
	sum, err := s.MultiplexFrameworks(context.Background(), external)
	if err != nil {
		t.Fatalf("multiplex: %v", err)
	}
	if sum.Integrated != 0 || sum.Conflicts != 1 || sum.Skipped != 1 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestMultiplexHonorsCancellation(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	external := ExternalFramework{
		Patterns: map[PatternType][]Pattern{PatternProperty: {{Name: "x"}}},
	}
	if _, err := s.MultiplexFrameworks(ctx, external); err == nil {
		t.Fatal("cancelled context must abort the merge")
	}
	if got := s.ListPatterns(); len(got) != 0 {
		t.Fatalf("items integrated after cancellation: %v", got)
	}
}

func TestMultiplexMany(t *testing.T) {
	stores := []*Store{NewStore(nil), NewStore(nil), NewStore(nil), NewStore(nil)}
	external := ExternalFramework{
		Patterns: map[PatternType][]Pattern{
			PatternProperty:    {{Name: "enc", Domain: "security"}},
			PatternProcess:     {{Name: "deploy", Domain: "ops"}},
			PatternPerspective: {{Name: "auditor"}},
		},
	}

	summaries, err := MultiplexMany(context.Background(), stores, external, 2)
	if err != nil {
		t.Fatalf("multiplex many: %v", err)
	}
	if len(summaries) != len(stores) {
		t.Fatalf("summaries = %d, want %d", len(summaries), len(stores))
	}
	for i, sum := range summaries {
		if sum.Integrated != 3 || sum.Skipped != 0 {
			t.Fatalf("store %d summary = %+v", i, sum)
		}
		if got := len(stores[i].ListPatterns()); got != 3 {
			t.Fatalf("store %d patterns = %d, want 3", i, got)
		}
	}
}

func TestMultiplexManyZeroWorkers(t *testing.T) {
	stores := []*Store{NewStore(nil)}
	summaries, err := MultiplexMany(context.Background(), stores, ExternalFramework{}, 0)
	if err != nil {
		t.Fatalf("multiplex many: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d", len(summaries))
	}
}
