package core

import (
	"context"
	"fmt"
	"os"

	"p3if/internal/infra/persistence/jsonfile"
	"p3if/internal/infra/persistence/memory"
	"p3if/internal/infra/persistence/postgres"
	"p3if/internal/infra/persistence/sqlite"
	"p3if/pkg/framework"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageJSONFile StorageDriver = "jsonfile" // single JSON document file
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	P3IF_STORAGE_DRIVER: memory|jsonfile|sqlite|postgres (default sqlite)
//	P3IF_JSON_PATH: path to the JSON document (default ./p3if.json)
//	P3IF_SQLITE_PATH: path to the sqlite file (default ./p3if.db)
//	P3IF_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore() (framework.PersistentStore, error) {
	driver := os.Getenv("P3IF_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageJSONFile:
		return jsonfile.NewStore(os.Getenv("P3IF_JSON_PATH"))
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("P3IF_SQLITE_PATH"))
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("P3IF_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// HydrateStore loads the durable state into a fresh engine store through the
// trusting snapshot path. Validate afterwards flags whatever the durable
// data got wrong; the engine's own invariants stay intact either way.
func HydrateStore(ctx context.Context, src framework.PersistentStore, engine *RulesEngine, opts ...StoreOption) (*Store, error) {
	lister, ok := src.(framework.Lister)
	if !ok {
		return nil, fmt.Errorf("persistent store %T does not support bulk listing", src)
	}
	patterns, err := lister.ListPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	relationships, err := lister.ListRelationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}

	store := NewStore(engine, opts...)
	store.ImportState(Document{Patterns: patterns, Relationships: relationships})
	return store, nil
}

// PersistStore writes the store's full contents to the durable backend,
// replacing whatever it held.
func PersistStore(ctx context.Context, store *Store, dst framework.PersistentStore) error {
	if err := dst.Clear(ctx); err != nil {
		return fmt.Errorf("clear persistent store: %w", err)
	}
	doc := store.ExportDocument()
	for _, p := range doc.Patterns {
		if err := dst.SavePattern(ctx, p); err != nil {
			return fmt.Errorf("save pattern %s: %w", p.ID, err)
		}
	}
	for _, r := range doc.Relationships {
		if err := dst.SaveRelationship(ctx, r); err != nil {
			return fmt.Errorf("save relationship %s: %w", r.ID, err)
		}
	}
	return nil
}
