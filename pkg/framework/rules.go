package framework

import "context"

// Severity captures validation outcomes.
type Severity string

// Issue severities. A framework is valid iff no issue carries SeverityError.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue reports a single validation finding.
type Issue struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Kind     string   `json:"kind"`
	EntityID string   `json:"entity_id"`
}

// Report aggregates issues from rule evaluation.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Merge appends issues from another report.
func (r *Report) Merge(other Report) {
	if len(other.Issues) == 0 {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
}

// Valid reports whether the framework passed: no error-severity issues.
func (r Report) Valid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Count returns the number of issues at the given severity.
func (r Report) Count(sev Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}

// FrameworkView provides read-only access to store contents for rule
// evaluation. Implementations return clones; rules never mutate the store.
type FrameworkView interface {
	ListPatterns() []Pattern
	ListRelationships() []Relationship
	FindPattern(id string) (Pattern, bool)
	FindRelationship(id string) (Relationship, bool)
}

// Rule defines a validation check evaluated over a consistent snapshot.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view FrameworkView) (Report, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their reports.
func (e *RulesEngine) Evaluate(ctx context.Context, view FrameworkView) (Report, error) {
	var combined Report
	for _, rule := range e.rules {
		report, err := rule.Evaluate(ctx, view)
		if err != nil {
			return Report{}, err
		}
		combined.Merge(report)
	}
	return combined, nil
}
