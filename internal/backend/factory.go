package backend

import (
	"context"
	"fmt"

	"classfees/internal/core"
	"classfees/internal/docstore/memory"
	"classfees/internal/docstore/redis"
	"classfees/internal/docstore/sqlite"
	"classfees/internal/log"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Type {
	case SQLiteBackend:
		return f.createSQLite(config)
	case RedisBackend:
		return f.createRedis(ctx, config)
	case MemoryBackend:
		return f.createMemory(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLite(config Config) (*Result, error) {
	store, err := sqlite.NewStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createRedis(ctx context.Context, config Config) (*Result, error) {
	prefix := config.RedisPrefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	store, err := redis.NewStore(ctx, config.RedisURL, prefix)
	if err != nil {
		return nil, fmt.Errorf("initialize Redis store: %w", err)
	}
	f.logger.Info("Initialized Redis store", "prefix", prefix)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMemory(config Config) (*Result, error) {
	dir := config.DataDirectory
	if dir == "" {
		dir = "data"
	}
	store, err := memory.NewFromFiles(dir, core.StudentsCollection, core.PaymentsCollection)
	if err != nil {
		return nil, fmt.Errorf("initialize memory store: %w", err)
	}
	f.logger.Info("Initialized memory store", "data_directory", dir)
	return &Result{Store: store}, nil
}
