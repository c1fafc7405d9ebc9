package core

import (
	"context"
	"time"
)

// DefaultMetricsTTL is how long a cached metrics result stays valid when no
// mutation occurs.
const DefaultMetricsTTL = 300 * time.Second

// Metrics aggregates framework-wide statistics.
type Metrics struct {
	TotalPatterns      int     `json:"total_patterns"`
	TotalRelationships int     `json:"total_relationships"`
	AverageStrength    float64 `json:"average_relationship_strength"`
	AverageConfidence  float64 `json:"average_confidence"`
	DomainCount        int     `json:"domain_count"`
	OrphanedPatterns   int     `json:"orphaned_patterns"`
	DeprecatedPatterns int     `json:"deprecated_patterns"`
	ValidationIssues   int     `json:"validation_issues"`
}

// metricsCache stores the last computation and its timestamp. Mutations flip
// valid to false immediately, regardless of age.
type metricsCache struct {
	metrics    Metrics
	computedAt time.Time
	valid      bool
	ttl        time.Duration
}

func (c *metricsCache) invalidate() {
	c.valid = false
}

// Metrics returns the aggregate statistics, recomputing when the cache is
// stale or invalidated. Recomputation holds the writer lock so it never
// reads a torn snapshot across the two primary maps.
func (s *Store) Metrics(ctx context.Context) (Metrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	if s.cache.valid && now.Sub(s.cache.computedAt) < s.cache.ttl {
		return s.cache.metrics, nil
	}

	m, err := s.computeMetricsLocked(ctx)
	if err != nil {
		return Metrics{}, err
	}
	s.cache.metrics = m
	s.cache.computedAt = now
	s.cache.valid = true
	return m, nil
}

// InvalidateMetrics clears the cache explicitly. Every mutating operation
// already does this; the method exists for out-of-band collaborators.
func (s *Store) InvalidateMetrics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.invalidate()
}

func (s *Store) computeMetricsLocked(ctx context.Context) (Metrics, error) {
	m := Metrics{
		TotalPatterns:      len(s.patterns),
		TotalRelationships: len(s.relationships),
	}

	domains := make(map[string]struct{})
	for id, p := range s.patterns {
		if p.Domain != "" {
			domains[p.Domain] = struct{}{}
		}
		if len(s.relsByPattern[id]) == 0 {
			m.OrphanedPatterns++
		}
		if p.Deprecated() {
			m.DeprecatedPatterns++
		}
	}
	m.DomainCount = len(domains)

	if len(s.relationships) > 0 {
		var strengthSum, confidenceSum float64
		for _, r := range s.relationships {
			strengthSum += r.Strength
			confidenceSum += r.Confidence
		}
		m.AverageStrength = strengthSum / float64(len(s.relationships))
		m.AverageConfidence = confidenceSum / float64(len(s.relationships))
	}

	report, err := s.validateLocked(ctx)
	if err != nil {
		return Metrics{}, err
	}
	m.ValidationIssues = len(report.Issues)
	return m, nil
}
