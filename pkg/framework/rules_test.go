package framework

import (
	"context"
	"testing"
)

type staticRule struct {
	name   string
	report Report
}

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, FrameworkView) (Report, error) {
	return r.report, nil
}

type emptyView struct{}

func (emptyView) ListPatterns() []Pattern                     { return nil }
func (emptyView) ListRelationships() []Relationship           { return nil }
func (emptyView) FindPattern(string) (Pattern, bool)          { return Pattern{}, false }
func (emptyView) FindRelationship(string) (Relationship, bool) { return Relationship{}, false }

func TestReportMergeAndCounts(t *testing.T) {
	var r Report
	if !r.Valid() {
		t.Fatal("empty report must be valid")
	}
	r.Merge(Report{Issues: []Issue{{Rule: "a", Severity: SeverityInfo}}})
	r.Merge(Report{})
	r.Merge(Report{Issues: []Issue{{Rule: "b", Severity: SeverityError}, {Rule: "c", Severity: SeverityWarning}}})

	if len(r.Issues) != 3 {
		t.Fatalf("issues = %d, want 3", len(r.Issues))
	}
	if r.Valid() {
		t.Fatal("report with an error issue must be invalid")
	}
	if got := r.Count(SeverityError); got != 1 {
		t.Fatalf("error count = %d, want 1", got)
	}
	if got := r.Count(SeverityInfo); got != 1 {
		t.Fatalf("info count = %d, want 1", got)
	}
}

func TestRulesEngineAggregates(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{name: "one", report: Report{Issues: []Issue{{Rule: "one", Severity: SeverityWarning}}}})
	engine.Register(staticRule{name: "two", report: Report{Issues: []Issue{{Rule: "two", Severity: SeverityInfo}}}})

	report, err := engine.Evaluate(context.Background(), emptyView{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(report.Issues) != 2 {
		t.Fatalf("issues = %d, want 2", len(report.Issues))
	}
	if !report.Valid() {
		t.Fatal("warnings and infos must not invalidate")
	}
}
