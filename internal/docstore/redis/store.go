// Package redis keeps each document in a hash and indexes every collection
// with a sorted set scored by insertion sequence.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"classfees/internal/docstore"
)

const (
	defaultPrefix   = "classfees"
	maxWatchRetries = 5
)

type Store struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewStore connects using a redis:// URL and verifies the connection.
func NewStore(ctx context.Context, url, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewStoreWithClient(client, prefix), nil
}

// NewStoreWithClient wraps an existing client; used by tests to isolate keys.
func NewStoreWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix, now: time.Now}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) docKey(collection, id string) string {
	return fmt.Sprintf("%s:%s:doc:%s", s.prefix, collection, id)
}

func (s *Store) indexKey(collection string) string {
	return fmt.Sprintf("%s:%s:index", s.prefix, collection)
}

func (s *Store) seqKey(collection string) string {
	return fmt.Sprintf("%s:%s:seq", s.prefix, collection)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return classify("ping", "", err)
	}
	return nil
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
	if err := docstore.ValidateName("collection", collection); err != nil {
		return nil, docstore.Fail(op, collection, docstore.ReasonInvalidArgument, err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(collection), 0, -1).Result()
	if err != nil {
		return nil, classify(op, collection, err)
	}
	if len(ids) == 0 {
		return []docstore.Record{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.docKey(collection, id))
		}
		return nil
	})
	if err != nil {
		return nil, classify(op, collection, err)
	}

	out := make([]docstore.Record, 0, len(ids))
	for i, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			// deleted between ZRANGE and HGETALL
			continue
		}
		rec, err := decode(ids[i], h)
		if err != nil {
			return nil, docstore.Fail(op, collection, docstore.ReasonUnknown, err)
		}
		if filter != nil && !filter.Matches(rec) {
			continue
		}
		out = append(out, rec)
	}

	if order != nil && order.Field == docstore.FieldCreatedAt {
		// index order is creation order
		if order.Direction == docstore.Desc {
			for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
				out[i], out[j] = out[j], out[i]
			}
		}
		return out, nil
	}
	docstore.Sort(out, order)
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

	seq, err := s.client.Incr(ctx, s.seqKey(collection)).Result()
	if err != nil {
		return "", classify("insert", collection, err)
	}
	id := uuid.NewString()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.docKey(collection, id),
			"data", data,
			"created_at", strconv.FormatInt(s.now().UTC().UnixNano(), 10))
		pipe.ZAdd(ctx, s.indexKey(collection), redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		return "", classify("insert", collection, err)
	}
	return id, nil
}

func (s *Store) UpdateByID(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := docstore.Normalize(fields)
	if err != nil {
		return docstore.Fail("update", collection, docstore.ReasonInvalidArgument, err)
	}
	key := s.docKey(collection, id)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, "data").Result()
		if err != nil {
			return err
		}
		doc := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return fmt.Errorf("decode document %s: %w", id, err)
		}
		for k, v := range patch {
			doc[k] = v
		}
		merged, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"data", string(merged),
				"updated_at", strconv.FormatInt(s.now().UTC().UnixNano(), 10))
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err = s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		break
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return docstore.Fail("update", collection, docstore.ReasonNotFound, fmt.Errorf("no document with id %q", id))
	default:
		return classify("update", collection, err)
	}
}

func (s *Store) DeleteByID(ctx context.Context, collection, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.docKey(collection, id))
		pipe.ZRem(ctx, s.indexKey(collection), id)
		return nil
	})
	if err != nil {
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

func decode(id string, h map[string]string) (docstore.Record, error) {
	rec := docstore.Record{ID: id, Fields: map[string]any{}}
	if err := json.Unmarshal([]byte(h["data"]), &rec.Fields); err != nil {
		return rec, fmt.Errorf("decode document %s: %w", id, err)
	}
	if v, err := strconv.ParseInt(h["created_at"], 10, 64); err == nil {
		rec.CreatedAt = time.Unix(0, v).UTC()
	}
	if v, err := strconv.ParseInt(h["updated_at"], 10, 64); err == nil {
		rec.UpdatedAt = time.Unix(0, v).UTC()
	}
	return rec, nil
}

func classify(op, collection string, err error) error {
	reason := docstore.ReasonUnknown
	var netErr net.Error
	msg := err.Error()
	switch {
	case errors.Is(err, redis.Nil):
		reason = docstore.ReasonNotFound
	case strings.HasPrefix(msg, "NOAUTH"), strings.HasPrefix(msg, "WRONGPASS"), strings.HasPrefix(msg, "NOPERM"):
		reason = docstore.ReasonPermissionDenied
	case strings.HasPrefix(msg, "WRONGTYPE"):
		reason = docstore.ReasonInvalidArgument
	case errors.Is(err, redis.ErrClosed), errors.As(err, &netErr),
		strings.HasPrefix(msg, "LOADING"), strings.HasPrefix(msg, "READONLY"), strings.HasPrefix(msg, "MASTERDOWN"):
		reason = docstore.ReasonUnavailable
	}
	return docstore.Fail(op, collection, reason, err)
}
