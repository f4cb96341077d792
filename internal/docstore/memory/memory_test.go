package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"classfees/internal/docstore"
	"classfees/internal/docstore/docstoretest"
)

func TestConformance(t *testing.T) {
	docstoretest.Run(t, func(t *testing.T) docstore.Store { return New() })
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	seed := `[
		{"id": "s1", "firstName": "Ana", "createdAt": "2025-01-01T00:00:00Z"},
		{"firstName": "Luis"}
	]`
	if err := os.WriteFile(filepath.Join(dir, "students.json"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFromFiles(dir, "students", "payments")
	if err != nil {
		t.Fatalf("NewFromFiles: %v", err)
	}
	recs, err := s.FetchAll(context.Background(), "students", &docstore.Order{Field: "firstName", Direction: docstore.Asc})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "s1" || recs[1].ID == "" {
		t.Fatalf("unexpected records: %+v", recs)
	}
	if recs[0].CreatedAt.Year() != 2025 {
		t.Fatalf("seeded createdAt not honoured: %v", recs[0].CreatedAt)
	}
	if _, ok := recs[0].Fields["id"]; ok {
		t.Fatal("id must not be kept as a document field")
	}

	payments, err := s.FetchAll(context.Background(), "payments", nil)
	if err != nil || len(payments) != 0 {
		t.Fatalf("payments: %v %v", payments, err)
	}
}

func TestNewFromFilesBadJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "students.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFiles(dir, "students"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().FetchAll(ctx, "students", nil)
	if docstore.ReasonOf(err) != docstore.ReasonUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
