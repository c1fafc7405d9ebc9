package core

import (
	"context"

	"p3if/pkg/framework"
)

// ExportDocument produces the interchange document from a consistent
// snapshot, sorted by id and stamped with the schema version.
func (s *Store) ExportDocument() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := lockedView{s: s}
	return Document{
		Patterns:      view.ListPatterns(),
		Relationships: view.ListRelationships(),
		Metadata: framework.DocumentMetadata{
			ExportedAt:    s.nowFn().UTC(),
			SchemaVersion: framework.SchemaVersion,
		},
	}
}

// ExportJSON serializes the export document.
func (s *Store) ExportJSON() ([]byte, error) {
	return s.ExportDocument().Encode()
}

// ImportDocument merges a document through the validating add operations,
// tolerating and counting per-item failures.
func (s *Store) ImportDocument(ctx context.Context, doc Document) (MultiplexSummary, error) {
	external := ExternalFramework{
		Patterns:      make(map[PatternType][]Pattern, 3),
		Relationships: doc.Relationships,
	}
	for _, p := range doc.Patterns {
		external.Patterns[p.Type] = append(external.Patterns[p.Type], p)
	}
	return s.MultiplexFrameworks(ctx, external)
}

// ImportJSON decodes and merges an export document.
func (s *Store) ImportJSON(ctx context.Context, data []byte) (MultiplexSummary, error) {
	doc, err := framework.DecodeDocument(data)
	if err != nil {
		return MultiplexSummary{}, err
	}
	return s.ImportDocument(ctx, doc)
}

// ImportState replaces the store contents wholesale from a trusted snapshot,
// rebuilding every index. Unlike ImportDocument it performs no referential
// checks — persistence adapters hydrate stale durable state through here and
// Validate flags whatever the snapshot got wrong.
func (s *Store) ImportState(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patterns = make(map[string]Pattern, len(doc.Patterns))
	s.relationships = make(map[string]Relationship, len(doc.Relationships))
	s.byType = make(map[PatternType]map[string]struct{})
	s.byDomain = make(map[string]map[string]struct{})
	s.byTag = make(map[string]map[string]struct{})
	s.relsByPattern = make(map[string]map[string]struct{})

	for _, p := range doc.Patterns {
		if p.ID == "" {
			continue
		}
		p.Tags = framework.NormalizeTags(p.Tags)
		stored := p.Clone()
		s.patterns[stored.ID] = stored
		s.indexPattern(stored)
	}
	for _, r := range doc.Relationships {
		if r.ID == "" {
			continue
		}
		stored := r.Clone()
		s.relationships[stored.ID] = stored
		for _, patternID := range stored.References() {
			s.indexRelationship(patternID, stored.ID)
		}
	}
	s.cache.invalidate()
}
