package core

import (
	"context"
	"time"

	"p3if/pkg/framework"
)

// Service exposes the store operations with audit, metrics, and tracing
// instrumentation attached. Web routes, exporters, and visualizers consume
// this instead of the raw store.
type Service struct {
	store   *Store
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	nowFn   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAuditRecorder attaches an audit trail sink.
func WithAuditRecorder(rec AuditRecorder) ServiceOption {
	return func(s *Service) { s.audit = rec }
}

// WithMetricsRecorder attaches an operation metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(s *Service) { s.metrics = rec }
}

// WithTracer attaches a tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) { s.tracer = tracer }
}

// NewService constructs a service backed by the supplied store.
func NewService(store *Store, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and fresh store with the given rules
// engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(NewStore(engine), opts...)
}

// Store returns the underlying store for read-only collaborators.
func (s *Service) Store() *Store {
	return s.store
}

// instrument wraps an operation with tracing, metrics, and auditing.
func (s *Service) instrument(ctx context.Context, operation, entityKind string, fn func(ctx context.Context) (string, error)) error {
	started := s.nowFn()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	entityID, err := fn(ctx)
	if span != nil {
		span.End(err)
	}
	s.finish(ctx, operation, entityKind, entityID, started, err)
	return err
}

func (s *Service) finish(ctx context.Context, operation, entityKind, entityID string, started time.Time, err error) {
	duration := s.nowFn().Sub(started)
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, duration)
	}
	if s.audit != nil {
		entry := AuditEntry{
			Operation:  operation,
			EntityKind: entityKind,
			EntityID:   entityID,
			Status:     AuditStatusSuccess,
			Duration:   duration,
			OccurredAt: started,
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
		}
		s.audit.Record(ctx, entry)
	}
}

// AddPattern registers a pattern.
func (s *Service) AddPattern(ctx context.Context, pattern Pattern) (Pattern, error) {
	var created Pattern
	err := s.instrument(ctx, "add_pattern", framework.KindPattern, func(context.Context) (string, error) {
		var err error
		created, err = s.store.AddPattern(pattern)
		return created.ID, err
	})
	return created, err
}

// RemovePattern removes a pattern; absence is (false, nil).
func (s *Service) RemovePattern(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.instrument(ctx, "remove_pattern", framework.KindPattern, func(context.Context) (string, error) {
		var err error
		removed, err = s.store.RemovePattern(id)
		return id, err
	})
	return removed, err
}

// AddRelationship registers a relationship.
func (s *Service) AddRelationship(ctx context.Context, rel Relationship) (Relationship, error) {
	var created Relationship
	err := s.instrument(ctx, "add_relationship", framework.KindRelationship, func(context.Context) (string, error) {
		var err error
		created, err = s.store.AddRelationship(rel)
		return created.ID, err
	})
	return created, err
}

// RemoveRelationship removes a relationship; absence is false.
func (s *Service) RemoveRelationship(ctx context.Context, id string) bool {
	var removed bool
	_ = s.instrument(ctx, "remove_relationship", framework.KindRelationship, func(context.Context) (string, error) {
		removed = s.store.RemoveRelationship(id)
		return id, nil
	})
	return removed
}

// HotSwapDimension substitutes newID for oldID across all relationships.
func (s *Service) HotSwapDimension(ctx context.Context, oldID, newID string) (int, error) {
	var count int
	err := s.instrument(ctx, "hot_swap_dimension", framework.KindPattern, func(context.Context) (string, error) {
		var err error
		count, err = s.store.HotSwapDimension(oldID, newID)
		return oldID, err
	})
	return count, err
}

// MultiplexFrameworks merges an external set, reporting partial success.
func (s *Service) MultiplexFrameworks(ctx context.Context, external ExternalFramework) (MultiplexSummary, error) {
	var summary MultiplexSummary
	err := s.instrument(ctx, "multiplex_frameworks", "", func(ctx context.Context) (string, error) {
		var err error
		summary, err = s.store.MultiplexFrameworks(ctx, external)
		return "", err
	})
	return summary, err
}

// Metrics returns the cached aggregate statistics.
func (s *Service) Metrics(ctx context.Context) (Metrics, error) {
	var m Metrics
	err := s.instrument(ctx, "get_metrics", "", func(ctx context.Context) (string, error) {
		var err error
		m, err = s.store.Metrics(ctx)
		return "", err
	})
	return m, err
}

// Validate runs the structural and extension rules.
func (s *Service) Validate(ctx context.Context) (Report, error) {
	var report Report
	err := s.instrument(ctx, "validate_framework", "", func(ctx context.Context) (string, error) {
		var err error
		report, err = s.store.Validate(ctx)
		return "", err
	})
	return report, err
}

// ExportJSON produces the export document bytes.
func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.instrument(ctx, "export_json", "", func(context.Context) (string, error) {
		var err error
		data, err = s.store.ExportJSON()
		return "", err
	})
	return data, err
}

// ImportJSON merges export document bytes, reporting partial success.
func (s *Service) ImportJSON(ctx context.Context, data []byte) (MultiplexSummary, error) {
	var summary MultiplexSummary
	err := s.instrument(ctx, "import_json", "", func(ctx context.Context) (string, error) {
		var err error
		summary, err = s.store.ImportJSON(ctx, data)
		return "", err
	})
	return summary, err
}
