package backend

import (
	"context"

	"classfees/internal/docstore"
)

// CleanupFunc releases the resources behind a store.
type CleanupFunc func() error

type Result struct {
	Store   docstore.Store
	Cleanup CleanupFunc
}

// Close runs Cleanup when there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory opens the document store selected by configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	// sqlite
	SQLiteDBPath string

	// redis
	RedisURL    string
	RedisPrefix string

	// memory: optional <collection>.json seed files
	DataDirectory string
}

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}
