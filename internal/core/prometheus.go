package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder implements MetricsRecorder on a Prometheus
// histogram partitioned by operation and status.
type PrometheusMetricsRecorder struct {
	durations *prometheus.HistogramVec
}

// NewPrometheusMetricsRecorder constructs a recorder and registers its
// collectors with the given registerer (nil means the default registerer).
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "p3if",
		Subsystem: "service",
		Name:      "operation_duration_seconds",
		Help:      "Duration of framework service operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
	if err := reg.Register(durations); err != nil {
		return nil, err
	}
	return &PrometheusMetricsRecorder{durations: durations}, nil
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// FrameworkCollector exposes the store's aggregate metrics as Prometheus
// gauges, computed on scrape through the metrics cache.
type FrameworkCollector struct {
	store *Store

	totalPatterns      *prometheus.Desc
	totalRelationships *prometheus.Desc
	averageStrength    *prometheus.Desc
	averageConfidence  *prometheus.Desc
	domainCount        *prometheus.Desc
	orphanedPatterns   *prometheus.Desc
	deprecatedPatterns *prometheus.Desc
	validationIssues   *prometheus.Desc
}

// NewFrameworkCollector constructs a collector over the given store.
func NewFrameworkCollector(store *Store) *FrameworkCollector {
	return &FrameworkCollector{
		store:              store,
		totalPatterns:      prometheus.NewDesc("p3if_patterns_total", "Number of registered patterns.", nil, nil),
		totalRelationships: prometheus.NewDesc("p3if_relationships_total", "Number of registered relationships.", nil, nil),
		averageStrength:    prometheus.NewDesc("p3if_relationship_strength_avg", "Average relationship strength.", nil, nil),
		averageConfidence:  prometheus.NewDesc("p3if_relationship_confidence_avg", "Average relationship confidence.", nil, nil),
		domainCount:        prometheus.NewDesc("p3if_domains_total", "Number of distinct pattern domains.", nil, nil),
		orphanedPatterns:   prometheus.NewDesc("p3if_orphaned_patterns_total", "Patterns referenced by zero relationships.", nil, nil),
		deprecatedPatterns: prometheus.NewDesc("p3if_deprecated_patterns_total", "Patterns carrying the deprecation marker.", nil, nil),
		validationIssues:   prometheus.NewDesc("p3if_validation_issues_total", "Issues reported by framework validation.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *FrameworkCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalPatterns
	ch <- c.totalRelationships
	ch <- c.averageStrength
	ch <- c.averageConfidence
	ch <- c.domainCount
	ch <- c.orphanedPatterns
	ch <- c.deprecatedPatterns
	ch <- c.validationIssues
}

// Collect implements prometheus.Collector.
func (c *FrameworkCollector) Collect(ch chan<- prometheus.Metric) {
	m, err := c.store.Metrics(context.Background())
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.validationIssues, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.totalPatterns, prometheus.GaugeValue, float64(m.TotalPatterns))
	ch <- prometheus.MustNewConstMetric(c.totalRelationships, prometheus.GaugeValue, float64(m.TotalRelationships))
	ch <- prometheus.MustNewConstMetric(c.averageStrength, prometheus.GaugeValue, m.AverageStrength)
	ch <- prometheus.MustNewConstMetric(c.averageConfidence, prometheus.GaugeValue, m.AverageConfidence)
	ch <- prometheus.MustNewConstMetric(c.domainCount, prometheus.GaugeValue, float64(m.DomainCount))
	ch <- prometheus.MustNewConstMetric(c.orphanedPatterns, prometheus.GaugeValue, float64(m.OrphanedPatterns))
	ch <- prometheus.MustNewConstMetric(c.deprecatedPatterns, prometheus.GaugeValue, float64(m.DeprecatedPatterns))
	ch <- prometheus.MustNewConstMetric(c.validationIssues, prometheus.GaugeValue, float64(m.ValidationIssues))
}
