package backend

import (
	"context"
	"fmt"

	"kern/internal/log"
	"kern/internal/storage"
	"kern/internal/storage/memory"
	"kern/internal/storage/redisstore"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new store factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentStorage)}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLite:
		return f.createSQLite(ctx, config)
	case Memory:
		return f.createMemory(ctx)
	case Redis:
		return f.createRedis(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLite(ctx context.Context, config Config) (*Result, error) {
	store, err := storage.NewSQLiteSessionStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite session store: %w", err)
	}

	f.logger.InfoContext(ctx, "Using SQLite session store", "path", config.SQLiteDBPath)

	return &Result{
		Store: store,
		Cleanup: func() error {
			f.logger.Info("Closing SQLite session store")
			return store.Close()
		},
		Ping: store.Ping,
	}, nil
}

func (f *DefaultFactory) createRedis(ctx context.Context, config Config) (*Result, error) {
	store, err := redisstore.Open(ctx, config.RedisURL, config.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("initialize Redis session store: %w", err)
	}

	f.logger.InfoContext(ctx, "Using Redis session store", "ttl", config.SessionTTL)

	return &Result{
		Store: store,
		Cleanup: func() error {
			f.logger.Info("Closing Redis session store")
			return store.Close()
		},
		Ping: store.Ping,
	}, nil
}

func (f *DefaultFactory) createMemory(ctx context.Context) (*Result, error) {
	f.logger.InfoContext(ctx, "Using in-memory session store; sessions are lost on restart")
	return &Result{
		Store:   memory.New(),
		Cleanup: func() error { return nil },
	}, nil
}
