// Package sqlite persists framework records as JSON payloads in a SQLite
// database using the pure Go driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"p3if/pkg/framework"
)

// Compile-time contract assertions.
var (
	_ framework.PersistentStore = (*Store)(nil)
	_ framework.Lister          = (*Store)(nil)
)

// Store keeps one table per record kind, each row a JSON payload keyed by
// id; patterns additionally carry their dimension for typed queries.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) a SQLite-backed persistent store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "p3if.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureTables(db); err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureTables(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS patterns (
		id TEXT PRIMARY KEY,
		ptype TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		return fmt.Errorf("create patterns table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return fmt.Errorf("create relationships table: %w", err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SavePattern upserts a pattern record.
func (s *Store) SavePattern(ctx context.Context, p framework.Pattern) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pattern %s: %w", p.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO patterns(id,ptype,payload) VALUES(?,?,?)
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
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM patterns WHERE id = ?`, id).Scan(&payload)
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
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM patterns WHERE ptype = ? ORDER BY id`, string(t))
	if err != nil {
		return nil, fmt.Errorf("select patterns by type: %w", err)
	}
	return scanPatterns(rows)
}

// DeletePattern removes a pattern; absence is (false, nil).
func (s *Store) DeletePattern(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patterns WHERE id = ?`, id)
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
		`INSERT INTO relationships(id,payload) VALUES(?,?)
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
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM relationships WHERE id = ?`, id).Scan(&payload)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, id)
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
	if _, err := s.db.ExecContext(ctx, `DELETE FROM patterns`); err != nil {
		return fmt.Errorf("clear patterns: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM relationships`); err != nil {
		return fmt.Errorf("clear relationships: %w", err)
	}
	return nil
}

// ListPatterns returns all stored patterns sorted by id.
func (s *Store) ListPatterns(ctx context.Context) ([]framework.Pattern, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM patterns ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select patterns: %w", err)
	}
	return scanPatterns(rows)
}

// ListRelationships returns all stored relationships sorted by id.
func (s *Store) ListRelationships(ctx context.Context) ([]framework.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM relationships ORDER BY id`)
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
