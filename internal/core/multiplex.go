package core

import (
	"context"
	"errors"
	"sync"

	"p3if/pkg/framework"
)

// ExternalFramework is an externally supplied pattern/relationship set to be
// merged into a store, grouped by dimension the way import sources deliver
// them.
type ExternalFramework struct {
	Patterns      map[PatternType][]Pattern `json:"patterns"`
	Relationships []Relationship            `json:"relationships"`
}

// MultiplexSummary reports the outcome of a merge so callers can surface
// partial success. Conflicts counts identity collisions (duplicate id or
// matching type+name+domain); every non-integrated item also counts as
// skipped.
type MultiplexSummary struct {
	Integrated int `json:"integrated"`
	Skipped    int `json:"skipped"`
	Conflicts  int `json:"conflicts"`
}

// MultiplexFrameworks merges the external set through the primitive add
// operations. A single item's failure never aborts the batch; failures
// aggregate into the summary. Only context cancellation is fatal.
func (s *Store) MultiplexFrameworks(ctx context.Context, external ExternalFramework) (MultiplexSummary, error) {
	var sum MultiplexSummary

	for _, t := range framework.PatternTypes() {
		for _, p := range external.Patterns[t] {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			if p.Type == "" {
				p.Type = t
			}
			if p.Type != t || s.collides(p) {
				sum.Conflicts++
				sum.Skipped++
				continue
			}
			if _, err := s.AddPattern(p); err != nil {
				var dup framework.DuplicateIDError
				if errors.As(err, &dup) {
					sum.Conflicts++
				}
				sum.Skipped++
				continue
			}
			sum.Integrated++
		}
	}

	for _, r := range external.Relationships {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if _, err := s.AddRelationship(r); err != nil {
			var dup framework.DuplicateIDError
			if errors.As(err, &dup) {
				sum.Conflicts++
			}
			sum.Skipped++
			continue
		}
		sum.Integrated++
	}

	return sum, nil
}

// collides reports an identity collision for a pattern that would arrive
// under a fresh id: same dimension, name, and domain as an existing pattern.
func (s *Store) collides(p Pattern) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id := range s.byType[p.Type] {
		existing, ok := s.patterns[id]
		if !ok {
			continue
		}
		if existing.ID != p.ID && existing.Name == p.Name && existing.Domain == p.Domain {
			return true
		}
	}
	return false
}

// MultiplexMany merges the same external set into several independent store
// instances through a bounded worker pool. A single store's mutations still
// serialize on its own lock; the pool only parallelizes across instances.
func MultiplexMany(ctx context.Context, stores []*Store, external ExternalFramework, workers int) ([]MultiplexSummary, error) {
	if workers <= 0 || workers > len(stores) {
		workers = len(stores)
	}

	summaries := make([]MultiplexSummary, len(stores))
	errs := make([]error, len(stores))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, store := range stores {
		wg.Add(1)
		go func(i int, store *Store) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			summaries[i], errs[i] = store.MultiplexFrameworks(ctx, external)
		}(i, store)
	}
	wg.Wait()

	return summaries, errors.Join(errs...)
}
