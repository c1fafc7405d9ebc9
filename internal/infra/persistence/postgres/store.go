// Package postgres provides a Postgres-backed persistent store mirroring the
// sqlite adapter's JSON-payload schema.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"p3if/pkg/framework"
)

// Compile-time contract assertions.
var (
	_ framework.PersistentStore = (*Store)(nil)
	_ framework.Lister          = (*Store)(nil)
)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenPersistentStore defaults while
	// allowing overrides via env.
	defaultDSN = "postgres://localhost/p3if?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the database opener for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

// Store persists framework records to Postgres.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), pings the server, and ensures the record tables exist.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTables(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureTables(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS p3if_patterns (
		id TEXT PRIMARY KEY,
		ptype TEXT NOT NULL,
		payload JSONB NOT NULL
	)`); err != nil {
		return fmt.Errorf("create patterns table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS p3if_relationships (
		id TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return fmt.Errorf("create relationships table: %w", err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SavePattern upserts a pattern record.
func (s *Store) SavePattern(ctx context.Context, p framework.Pattern) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pattern %s: %w", p.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO p3if_patterns(id,ptype,payload) VALUES($1,$2,$3)
		 ON CONFLICT(id) DO UPDATE SET ptype=excluded.ptype, payload=excluded.payload`,
		p.ID, string(p.Type), payload)
	if err != nil {
		return fmt.Errorf("upsert pattern %s: %w", p.ID, err)
	}
	return nil
}

// GetPattern retrieves a pattern by id.
func (s *Store) GetPattern(ctx context.Context, id string) (framework.Pattern, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM p3if_patterns WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return framework.Pattern{}, false, nil
	}
	if err != nil {
		return framework.Pattern{}, false, fmt.Errorf("select pattern %s: %w", id, err)
	}
	var p framework.Pattern
	if err := json.Unmarshal(payload, &p); err != nil {
		return framework.Pattern{}, false, fmt.Errorf("decode pattern %s: %w", id, err)
	}
	return p, true, nil
}

// GetPatternsByType returns all stored patterns of the given dimension,
// sorted by id.
func (s *Store) GetPatternsByType(ctx context.Context, t framework.PatternType) ([]framework.Pattern, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM p3if_patterns WHERE ptype = $1 ORDER BY id`, string(t))
	if err != nil {
		return nil, fmt.Errorf("select patterns by type: %w", err)
	}
	return scanPatterns(rows)
}

// DeletePattern removes a pattern; absence is (false, nil).
func (s *Store) DeletePattern(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM p3if_patterns WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete pattern %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveRelationship upserts a relationship record.
func (s *Store) SaveRelationship(ctx context.Context, r framework.Relationship) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode relationship %s: %w", r.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO p3if_relationships(id,payload) VALUES($1,$2)
		 ON CONFLICT(id) DO UPDATE SET payload=excluded.payload`,
		r.ID, payload)
	if err != nil {
		return fmt.Errorf("upsert relationship %s: %w", r.ID, err)
	}
	return nil
}

// GetRelationship retrieves a relationship by id.
func (s *Store) GetRelationship(ctx context.Context, id string) (framework.Relationship, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM p3if_relationships WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return framework.Relationship{}, false, nil
	}
	if err != nil {
		return framework.Relationship{}, false, fmt.Errorf("select relationship %s: %w", id, err)
	}
	var r framework.Relationship
	if err := json.Unmarshal(payload, &r); err != nil {
		return framework.Relationship{}, false, fmt.Errorf("decode relationship %s: %w", id, err)
	}
	return r, true, nil
}

// DeleteRelationship removes a relationship; absence is (false, nil).
func (s *Store) DeleteRelationship(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM p3if_relationships WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete relationship %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear drops all stored records.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM p3if_patterns`); err != nil {
		return fmt.Errorf("clear patterns: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM p3if_relationships`); err != nil {
		return fmt.Errorf("clear relationships: %w", err)
	}
	return nil
}

// ListPatterns returns all stored patterns sorted by id.
func (s *Store) ListPatterns(ctx context.Context) ([]framework.Pattern, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM p3if_patterns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select patterns: %w", err)
	}
	return scanPatterns(rows)
}

// ListRelationships returns all stored relationships sorted by id.
func (s *Store) ListRelationships(ctx context.Context) ([]framework.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM p3if_relationships ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select relationships: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []framework.Relationship
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		var r framework.Relationship
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decode relationship: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanPatterns(rows *sql.Rows) ([]framework.Pattern, error) {
	defer func() { _ = rows.Close() }()

	var out []framework.Pattern
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		var p framework.Pattern
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode pattern: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
