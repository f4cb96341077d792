package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"classfees/internal/docstore"
	"classfees/internal/docstore/docstoretest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "classfees.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	docstoretest.Run(t, func(t *testing.T) docstore.Store { return newTestStore(t) })
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classfees.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s.Close()
	if err := RunMigrations(path); err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}
}

func TestNumericFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Insert(ctx, "payments", map[string]any{"amount": 50})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, "payments", map[string]any{"amount": "50"}); err != nil {
		t.Fatal(err)
	}
	recs, err := s.FetchFiltered(ctx, "payments", docstore.Filter{Field: "amount", Value: 50.0}, nil)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != id {
		t.Fatalf("got %+v", recs)
	}
}

func TestClosedDatabase(t *testing.T) {
	s := newTestStore(t)
	s.Close()
	_, err := s.FetchAll(context.Background(), "students", nil)
	if err == nil {
		t.Fatal("expected error on closed database")
	}
	var derr *docstore.Error
	if !errors.As(err, &derr) || derr.Op != "fetch" {
		t.Fatalf("expected *docstore.Error, got %#v", err)
	}
}
