// Package memory is an in-process docstore.Store for development and tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"classfees/internal/docstore"
)

type Store struct {
	mu    sync.Mutex
	cols  map[string][]docstore.Record // insertion order
	last  time.Time
	now   func() time.Time
	newID func() string
}

func New() *Store {
	return &Store{
		cols:  make(map[string][]docstore.Record),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// NewFromFiles loads optional seed files named <collection>.json from base.
// Each file holds an array of objects; "id" and "createdAt" (RFC 3339) are
// honoured when present. Missing files are skipped.
func NewFromFiles(base string, collections ...string) (*Store, error) {
	s := New()
	for _, col := range collections {
		path := filepath.Join(base, col+".json")
		raw, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read seed %s: %w", path, err)
		}
		var docs []map[string]any
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("parse seed %s: %w", path, err)
		}
		for _, doc := range docs {
			if err := s.seed(col, doc); err != nil {
				return nil, fmt.Errorf("seed %s: %w", path, err)
			}
		}
	}
	return s, nil
}

func (s *Store) seed(col string, doc map[string]any) error {
	id, _ := doc[docstore.FieldID].(string)
	if strings.TrimSpace(id) == "" {
		id = s.newID()
	}
	fields, err := docstore.Normalize(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	created := s.tick()
	if v, ok := doc[docstore.FieldCreatedAt].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			created = t.UTC()
		}
	}
	s.cols[col] = append(s.cols[col], docstore.Record{ID: id, Fields: fields, CreatedAt: created})
	return nil
}

// tick returns a strictly increasing timestamp so creation order is total.
func (s *Store) tick() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

func (s *Store) FetchAll(ctx context.Context, collection string, order *docstore.Order) ([]docstore.Record, error) {
	return s.fetch(ctx, "fetch", collection, nil, order)
}

func (s *Store) FetchFiltered(ctx context.Context, collection string, filter docstore.Filter, order *docstore.Order) ([]docstore.Record, error) {
	if err := docstore.ValidateName("filter field", filter.Field); err != nil {
		return nil, docstore.Fail("query", collection, docstore.ReasonInvalidArgument, err)
	}
	return s.fetch(ctx, "query", collection, &filter, order)
}

func (s *Store) fetch(ctx context.Context, op, collection string, filter *docstore.Filter, order *docstore.Order) ([]docstore.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, docstore.Fail(op, collection, docstore.ReasonUnavailable, err)
	}
	if err := docstore.ValidateName("collection", collection); err != nil {
		return nil, docstore.Fail(op, collection, docstore.ReasonInvalidArgument, err)
	}
	s.mu.Lock()
	out := make([]docstore.Record, 0, len(s.cols[collection]))
	for _, r := range s.cols[collection] {
		if filter != nil && !filter.Matches(r) {
			continue
		}
		out = append(out, clone(r))
	}
	s.mu.Unlock()
	docstore.Sort(out, order)
	return out, nil
}

func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", docstore.Fail("insert", collection, docstore.ReasonUnavailable, err)
	}
	if err := docstore.ValidateName("collection", collection); err != nil {
		return "", docstore.Fail("insert", collection, docstore.ReasonInvalidArgument, err)
	}
	doc, err := docstore.Normalize(fields)
	if err != nil {
		return "", docstore.Fail("insert", collection, docstore.ReasonInvalidArgument, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	s.cols[collection] = append(s.cols[collection], docstore.Record{ID: id, Fields: doc, CreatedAt: s.tick()})
	return id, nil
}

func (s *Store) UpdateByID(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return docstore.Fail("update", collection, docstore.ReasonUnavailable, err)
	}
	patch, err := docstore.Normalize(fields)
	if err != nil {
		return docstore.Fail("update", collection, docstore.ReasonInvalidArgument, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cols[collection] {
		r := &s.cols[collection][i]
		if r.ID != id {
			continue
		}
		for k, v := range patch {
			r.Fields[k] = v
		}
		r.UpdatedAt = s.tick()
		return nil
	}
	return docstore.Fail("update", collection, docstore.ReasonNotFound, fmt.Errorf("no document with id %q", id))
}

func (s *Store) DeleteByID(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return docstore.Fail("delete", collection, docstore.ReasonUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.cols[collection]
	for i, r := range recs {
		if r.ID == id {
			s.cols[collection] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func clone(r docstore.Record) docstore.Record {
	f := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		if list, ok := v.([]any); ok {
			v = append([]any(nil), list...)
		}
		f[k] = v
	}
	r.Fields = f
	return r
}
