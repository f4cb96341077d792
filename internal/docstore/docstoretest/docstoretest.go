// Package docstoretest holds the behaviour every docstore.Store backend must
// share. Backend packages call Run from their own tests.
package docstoretest

import (
	"context"
	"errors"
	"testing"

	"classfees/internal/docstore"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) docstore.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAndFetch", func(t *testing.T) { testInsertAndFetch(t, newStore(t)) })
	t.Run("CreatedAtOrder", func(t *testing.T) { testCreatedAtOrder(t, newStore(t)) })
	t.Run("FieldOrder", func(t *testing.T) { testFieldOrder(t, newStore(t)) })
	t.Run("Filter", func(t *testing.T) { testFilter(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("CollectionsIsolated", func(t *testing.T) { testCollectionsIsolated(t, newStore(t)) })
}

func mustInsert(t *testing.T, s docstore.Store, col string, fields map[string]any) string {
	t.Helper()
	id, err := s.Insert(context.Background(), col, fields)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == "" {
		t.Fatal("insert returned empty id")
	}
	return id
}

func ids(recs []docstore.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func assertIDs(t *testing.T, got []docstore.Record, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("got ids %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("got ids %v, want %v", g, want)
		}
	}
}

func testInsertAndFetch(t *testing.T, s docstore.Store) {
	ctx := context.Background()

	empty, err := s.FetchAll(ctx, "payments", nil)
	if err != nil {
		t.Fatalf("fetch empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty collection, got %d", len(empty))
	}

	id := mustInsert(t, s, "payments", map[string]any{
		"studentId": "s1",
		"amount":    50,
		"months":    []string{"Marzo", "Abril"},
		"createdAt": "ignored",
	})

	recs, err := s.FetchAll(ctx, "payments", docstore.NewestFirst())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	assertIDs(t, recs, id)
	r := recs[0]
	if r.CreatedAt.IsZero() {
		t.Fatal("createdAt not stamped")
	}
	if !r.UpdatedAt.IsZero() {
		t.Fatal("updatedAt must be zero before any update")
	}
	if _, ok := r.Fields["createdAt"]; ok {
		t.Fatal("reserved field stored in document")
	}
	if r.Fields["studentId"] != "s1" {
		t.Fatalf("studentId=%v", r.Fields["studentId"])
	}
	if r.Fields["amount"] != float64(50) {
		t.Fatalf("amount=%#v", r.Fields["amount"])
	}
	months, ok := r.Fields["months"].([]any)
	if !ok || len(months) != 2 || months[0] != "Marzo" {
		t.Fatalf("months=%#v", r.Fields["months"])
	}
}

func testCreatedAtOrder(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	a := mustInsert(t, s, "students", map[string]any{"firstName": "a"})
	b := mustInsert(t, s, "students", map[string]any{"firstName": "b"})
	c := mustInsert(t, s, "students", map[string]any{"firstName": "c"})

	desc, err := s.FetchAll(ctx, "students", docstore.NewestFirst())
	if err != nil {
		t.Fatalf("fetch desc: %v", err)
	}
	assertIDs(t, desc, c, b, a)

	asc, err := s.FetchAll(ctx, "students", &docstore.Order{Field: docstore.FieldCreatedAt, Direction: docstore.Asc})
	if err != nil {
		t.Fatalf("fetch asc: %v", err)
	}
	assertIDs(t, asc, a, b, c)
}

func testFieldOrder(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	c := mustInsert(t, s, "students", map[string]any{"lastName": "Cortés"})
	a := mustInsert(t, s, "students", map[string]any{"lastName": "Araya"})
	b := mustInsert(t, s, "students", map[string]any{"lastName": "Bravo"})

	recs, err := s.FetchAll(ctx, "students", &docstore.Order{Field: "lastName", Direction: docstore.Asc})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	assertIDs(t, recs, a, b, c)
}

func testFilter(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	p1 := mustInsert(t, s, "payments", map[string]any{"studentId": "s1", "amount": 10})
	mustInsert(t, s, "payments", map[string]any{"studentId": "s2", "amount": 20})
	p3 := mustInsert(t, s, "payments", map[string]any{"studentId": "s1", "amount": 30})

	recs, err := s.FetchFiltered(ctx, "payments", docstore.Filter{Field: "studentId", Value: "s1"}, docstore.NewestFirst())
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	assertIDs(t, recs, p3, p1)

	none, err := s.FetchFiltered(ctx, "payments", docstore.Filter{Field: "studentId", Value: "nobody"}, nil)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no match, got %v", ids(none))
	}

	if _, err := s.FetchFiltered(ctx, "payments", docstore.Filter{}, nil); docstore.ReasonOf(err) != docstore.ReasonInvalidArgument {
		t.Fatalf("empty filter field: got %v", err)
	}
}

func testUpdate(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	id := mustInsert(t, s, "students", map[string]any{"firstName": "Ana", "email": "ana@x.cl"})

	if err := s.UpdateByID(ctx, "students", id, map[string]any{"email": "ana@y.cl", "course": "3B"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	recs, err := s.FetchFiltered(ctx, "students", docstore.Filter{Field: docstore.FieldID, Value: id}, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	assertIDs(t, recs, id)
	r := recs[0]
	if r.Fields["firstName"] != "Ana" || r.Fields["email"] != "ana@y.cl" || r.Fields["course"] != "3B" {
		t.Fatalf("fields=%v", r.Fields)
	}
	if r.UpdatedAt.IsZero() {
		t.Fatal("updatedAt not stamped")
	}
	if r.UpdatedAt.Before(r.CreatedAt) {
		t.Fatal("updatedAt before createdAt")
	}
}

func testUpdateMissing(t *testing.T, s docstore.Store) {
	err := s.UpdateByID(context.Background(), "students", "missing", map[string]any{"email": "x"})
	if !docstore.IsNotFound(err) {
		t.Fatalf("expected not_found, got %v", err)
	}
	var derr *docstore.Error
	if !errors.As(err, &derr) || derr.Collection != "students" || derr.Op != "update" {
		t.Fatalf("unexpected error shape: %#v", err)
	}
}

func testDelete(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	a := mustInsert(t, s, "payments", map[string]any{"amount": 1})
	b := mustInsert(t, s, "payments", map[string]any{"amount": 2})

	if err := s.DeleteByID(ctx, "payments", a); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteByID(ctx, "payments", "missing"); err != nil {
		t.Fatalf("delete missing must succeed, got %v", err)
	}
	recs, err := s.FetchAll(ctx, "payments", docstore.NewestFirst())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	assertIDs(t, recs, b)
}

func testCollectionsIsolated(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	st := mustInsert(t, s, "students", map[string]any{"firstName": "Ana"})
	mustInsert(t, s, "payments", map[string]any{"studentId": st})

	recs, err := s.FetchAll(ctx, "students", nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	assertIDs(t, recs, st)

	if err := s.DeleteByID(ctx, "payments", st); err != nil {
		t.Fatalf("delete: %v", err)
	}
	recs, _ = s.FetchAll(ctx, "students", nil)
	assertIDs(t, recs, st)
}
