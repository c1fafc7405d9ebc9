package core

import (
	"context"
	"fmt"

	"p3if/pkg/framework"
)

// DanglingReferenceRule flags relationship slots naming a pattern that is
// absent or registered under a different dimension. The insertion guard
// keeps these out of normal operation; the rule protects against imported
// snapshots and out-of-band data.
func DanglingReferenceRule() framework.Rule {
	return danglingReferenceRule{}
}

type danglingReferenceRule struct{}

func (danglingReferenceRule) Name() string { return "dangling_reference" }

func (danglingReferenceRule) Evaluate(_ context.Context, view framework.FrameworkView) (Report, error) {
	var report Report
	for _, rel := range view.ListRelationships() {
		for slot, patternID := range rel.References() {
			p, ok := view.FindPattern(patternID)
			if !ok {
				report.Issues = append(report.Issues, Issue{
					Rule:     "dangling_reference",
					Severity: SeverityError,
					Message:  fmt.Sprintf("relationship %s references missing %s %s", rel.ID, slot, patternID),
					Kind:     framework.KindRelationship,
					EntityID: rel.ID,
				})
				continue
			}
			if p.Type != slot {
				report.Issues = append(report.Issues, Issue{
					Rule:     "dangling_reference",
					Severity: SeverityError,
					Message:  fmt.Sprintf("relationship %s slot %s references %s pattern %s", rel.ID, slot, p.Type, patternID),
					Kind:     framework.KindRelationship,
					EntityID: rel.ID,
				})
			}
		}
	}
	return report, nil
}

// ScoreRangeRule flags strength or confidence values outside [0.0, 1.0].
func ScoreRangeRule() framework.Rule {
	return scoreRangeRule{}
}

type scoreRangeRule struct{}

func (scoreRangeRule) Name() string { return "score_range" }

func (scoreRangeRule) Evaluate(_ context.Context, view framework.FrameworkView) (Report, error) {
	var report Report
	for _, rel := range view.ListRelationships() {
		if err := rel.Validate(); err != nil {
			report.Issues = append(report.Issues, Issue{
				Rule:     "score_range",
				Severity: SeverityError,
				Message:  fmt.Sprintf("relationship %s: %v", rel.ID, err),
				Kind:     framework.KindRelationship,
				EntityID: rel.ID,
			})
		}
	}
	return report, nil
}

// OrphanedPatternRule reports patterns referenced by zero relationships.
// Informational only; orphans are legal.
func OrphanedPatternRule() framework.Rule {
	return orphanedPatternRule{}
}

type orphanedPatternRule struct{}

func (orphanedPatternRule) Name() string { return "orphaned_pattern" }

func (orphanedPatternRule) Evaluate(_ context.Context, view framework.FrameworkView) (Report, error) {
	referenced := make(map[string]struct{})
	for _, rel := range view.ListRelationships() {
		for _, patternID := range rel.References() {
			referenced[patternID] = struct{}{}
		}
	}

	var report Report
	for _, p := range view.ListPatterns() {
		if _, ok := referenced[p.ID]; ok {
			continue
		}
		report.Issues = append(report.Issues, Issue{
			Rule:     "orphaned_pattern",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("pattern %s (%s) is referenced by no relationship", p.ID, p.Name),
			Kind:     framework.KindPattern,
			EntityID: p.ID,
		})
	}
	return report, nil
}

func structuralRules() []framework.Rule {
	return []framework.Rule{DanglingReferenceRule(), ScoreRangeRule(), OrphanedPatternRule()}
}

// Validate evaluates the built-in structural rules plus any engine
// extensions over a consistent snapshot. Read-only; results are never
// cached — validation is cheap relative to metrics.
func (s *Store) Validate(ctx context.Context) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validateLocked(ctx)
}

func (s *Store) validateLocked(ctx context.Context) (Report, error) {
	view := lockedView{s: s}
	var combined Report
	for _, rule := range structuralRules() {
		report, err := rule.Evaluate(ctx, view)
		if err != nil {
			return Report{}, err
		}
		combined.Merge(report)
	}
	if s.engine != nil {
		report, err := s.engine.Evaluate(ctx, view)
		if err != nil {
			return Report{}, err
		}
		combined.Merge(report)
	}
	return combined, nil
}
