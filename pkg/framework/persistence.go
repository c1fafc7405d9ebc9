package framework

import "context"

// PersistentStore is the contract durable backends implement. Save
// operations are upserts; Get reports absence as (zero, false, nil); Delete
// reports absence as (false, nil). The in-memory engine never depends on a
// PersistentStore — collaborators feed durable state back through the
// engine's import paths.
type PersistentStore interface {
	SavePattern(ctx context.Context, p Pattern) error
	GetPattern(ctx context.Context, id string) (Pattern, bool, error)
	GetPatternsByType(ctx context.Context, t PatternType) ([]Pattern, error)
	DeletePattern(ctx context.Context, id string) (bool, error)
	SaveRelationship(ctx context.Context, r Relationship) error
	GetRelationship(ctx context.Context, id string) (Relationship, bool, error)
	DeleteRelationship(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
}

// Lister is an optional capability for bulk hydration. Every bundled adapter
// implements it; third-party adapters that cannot enumerate relationships
// remain usable for record-level access.
type Lister interface {
	ListPatterns(ctx context.Context) ([]Pattern, error)
	ListRelationships(ctx context.Context) ([]Relationship, error)
}
