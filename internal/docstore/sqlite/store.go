// Package sqlite stores documents as JSON rows in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"classfees/internal/docstore"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify("ping", "", err)
	}
	return nil
}

func (s *Store) FetchAll(ctx context.Context, collection string, order *docstore.Order) ([]docstore.Record, error) {
	if err := docstore.ValidateName("collection", collection); err != nil {
		return nil, docstore.Fail("fetch", collection, docstore.ReasonInvalidArgument, err)
	}
	query := "SELECT id, data, created_at, updated_at FROM documents WHERE collection = ?" + orderClause(order)
	return s.query(ctx, "fetch", collection, order, query, collection)
}

func (s *Store) FetchFiltered(ctx context.Context, collection string, filter docstore.Filter, order *docstore.Order) ([]docstore.Record, error) {
	if err := docstore.ValidateName("filter field", filter.Field); err != nil {
		return nil, docstore.Fail("query", collection, docstore.ReasonInvalidArgument, err)
	}
	var where string
	args := []any{collection}
	switch filter.Field {
	case docstore.FieldID:
		where = " AND id IS ?"
		args = append(args, filter.Value)
	case docstore.FieldCreatedAt, docstore.FieldUpdatedAt:
		return nil, docstore.Fail("query", collection, docstore.ReasonInvalidArgument,
			fmt.Errorf("cannot filter on %s", filter.Field))
	default:
		where = " AND json_extract(data, ?) IS ?"
		args = append(args, jsonPath(filter.Field), filter.Value)
	}
	query := "SELECT id, data, created_at, updated_at FROM documents WHERE collection = ?" + where + orderClause(order)
	return s.query(ctx, "query", collection, order, query, args...)
}

func (s *Store) query(ctx context.Context, op, collection string, order *docstore.Order, query string, args ...any) ([]docstore.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, collection, err)
	}
	defer rows.Close()

	out := []docstore.Record{}
	for rows.Next() {
		var (
			id, data string
			created  int64
			updated  sql.NullInt64
		)
		if err := rows.Scan(&id, &data, &created, &updated); err != nil {
			return nil, classify(op, collection, err)
		}
		fields := map[string]any{}
		if err := json.Unmarshal([]byte(data), &fields); err != nil {
			return nil, docstore.Fail(op, collection, docstore.ReasonUnknown, fmt.Errorf("decode document %s: %w", id, err))
		}
		rec := docstore.Record{ID: id, Fields: fields, CreatedAt: time.Unix(0, created).UTC()}
		if updated.Valid {
			rec.UpdatedAt = time.Unix(0, updated.Int64).UTC()
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, collection, err)
	}

	// document fields are ordered in Go so mixed value types sort the same
	// way on every backend
	if order != nil && !isTimeField(order.Field) {
		docstore.Sort(out, order)
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := docstore.ValidateName("collection", collection); err != nil {
		return "", docstore.Fail("insert", collection, docstore.ReasonInvalidArgument, err)
	}
	data, err := encode(fields)
	if err != nil {
		return "", docstore.Fail("insert", collection, docstore.ReasonInvalidArgument, err)
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data, created_at) VALUES (?, ?, ?, ?)",
		collection, id, data, s.now().UTC().UnixNano())
	if err != nil {
		return "", classify("insert", collection, err)
	}
	return id, nil
}

func (s *Store) UpdateByID(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := encode(fields)
	if err != nil {
		return docstore.Fail("update", collection, docstore.ReasonInvalidArgument, err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET data = json_patch(data, ?), updated_at = ? WHERE collection = ? AND id = ?",
		data, s.now().UTC().UnixNano(), collection, id)
	if err != nil {
		return classify("update", collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update", collection, err)
	}
	if n == 0 {
		return docstore.Fail("update", collection, docstore.ReasonNotFound, fmt.Errorf("no document with id %q", id))
	}
	return nil
}

func (s *Store) DeleteByID(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = ? AND id = ?", collection, id); err != nil {
		return classify("delete", collection, err)
	}
	return nil
}

func encode(fields map[string]any) (string, error) {
	doc, err := docstore.Normalize(fields)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isTimeField(field string) bool {
	return field == docstore.FieldCreatedAt || field == docstore.FieldUpdatedAt
}

func orderClause(order *docstore.Order) string {
	if order == nil || !isTimeField(order.Field) {
		return " ORDER BY rowid ASC"
	}
	col := "created_at"
	if order.Field == docstore.FieldUpdatedAt {
		col = "updated_at"
	}
	dir := "ASC"
	if order.Direction == docstore.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, rowid %s", col, dir, dir)
}

// jsonPath quotes a field name as a single JSON path member.
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

func classify(op, collection string, err error) error {
	reason := docstore.ReasonUnknown
	var se *sqlitedrv.Error
	switch {
	case errors.As(err, &se):
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_FULL:
			reason = docstore.ReasonUnavailable
		case sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_AUTH:
			reason = docstore.ReasonPermissionDenied
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_RANGE:
			reason = docstore.ReasonInvalidArgument
		}
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		reason = docstore.ReasonUnavailable
	}
	return docstore.Fail(op, collection, reason, err)
}
