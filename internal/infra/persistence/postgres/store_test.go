package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"p3if/pkg/framework"
)

// stub database/sql driver recording every statement; queries return no rows.

type stubRecorder struct {
	mu    sync.Mutex
	execs []string
}

func (r *stubRecorder) record(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs = append(r.execs, query)
}

func (r *stubRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.execs))
	copy(out, r.execs)
	return out
}

type stubConnector struct{ rec *stubRecorder }

func (c stubConnector) Connect(context.Context) (driver.Conn, error) { return stubConn{rec: c.rec}, nil }
func (c stubConnector) Driver() driver.Driver                        { return stubDriver{rec: c.rec} }

type stubDriver struct{ rec *stubRecorder }

func (d stubDriver) Open(string) (driver.Conn, error) { return stubConn{rec: d.rec}, nil }

type stubConn struct{ rec *stubRecorder }

func (c stubConn) Prepare(query string) (driver.Stmt, error) {
	return stubStmt{rec: c.rec, query: query}, nil
}
func (stubConn) Close() error              { return nil }
func (stubConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions unsupported") }

type stubStmt struct {
	rec   *stubRecorder
	query string
}

func (stubStmt) Close() error  { return nil }
func (stubStmt) NumInput() int { return -1 }

func (s stubStmt) Exec([]driver.Value) (driver.Result, error) {
	s.rec.record(s.query)
	return driver.RowsAffected(0), nil
}

func (s stubStmt) Query([]driver.Value) (driver.Rows, error) {
	s.rec.record(s.query)
	return emptyRows{}, nil
}

type emptyRows struct{}

func (emptyRows) Columns() []string              { return []string{"payload"} }
func (emptyRows) Close() error                   { return nil }
func (emptyRows) Next(dest []driver.Value) error { return io.EOF }

func newStubStore(t *testing.T) (*Store, *stubRecorder) {
	t.Helper()
	rec := &stubRecorder{}
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		return sql.OpenDB(stubConnector{rec: rec}), nil
	})
	t.Cleanup(restore)

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, rec
}

func TestNewStoreAppliesSchema(t *testing.T) {
	_, rec := newStubStore(t)

	var tables int
	for _, stmt := range rec.all() {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS") {
			tables++
		}
	}
	if tables != 2 {
		t.Fatalf("CREATE TABLE statements = %d, want 2: %v", tables, rec.all())
	}
}

func TestSaveIssuesUpserts(t *testing.T) {
	store, rec := newStubStore(t)
	ctx := context.Background()

	if err := store.SavePattern(ctx, framework.Pattern{ID: "p1", Type: framework.PatternProperty, Name: "enc"}); err != nil {
		t.Fatalf("save pattern: %v", err)
	}
	if err := store.SaveRelationship(ctx, framework.Relationship{ID: "r1", Strength: 0.5, Confidence: 1}); err != nil {
		t.Fatalf("save relationship: %v", err)
	}

	var upserts int
	for _, stmt := range rec.all() {
		if strings.Contains(stmt, "ON CONFLICT(id) DO UPDATE") {
			upserts++
		}
	}
	if upserts != 2 {
		t.Fatalf("upsert statements = %d, want 2: %v", upserts, rec.all())
	}
}

func TestLookupsOnEmptyDatabase(t *testing.T) {
	store, _ := newStubStore(t)
	ctx := context.Background()

	if _, ok, err := store.GetPattern(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing pattern = %v %v, want false nil", ok, err)
	}
	if _, ok, err := store.GetRelationship(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing relationship = %v %v, want false nil", ok, err)
	}
	if deleted, err := store.DeletePattern(ctx, "missing"); err != nil || deleted {
		t.Fatalf("delete missing = %v %v, want false nil", deleted, err)
	}
	patterns, err := store.ListPatterns(ctx)
	if err != nil || len(patterns) != 0 {
		t.Fatalf("list = %v %v", patterns, err)
	}
}

func TestClearIssuesDeletes(t *testing.T) {
	store, rec := newStubStore(t)
	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	var deletes int
	for _, stmt := range rec.all() {
		if strings.HasPrefix(strings.TrimSpace(stmt), "DELETE FROM") {
			deletes++
		}
	}
	if deletes != 2 {
		t.Fatalf("delete statements = %d, want 2", deletes)
	}
}
