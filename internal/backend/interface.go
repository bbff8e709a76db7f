package backend

import (
	"context"
	"time"

	"kern/internal/auth"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the session store and its cleanup function
type Result struct {
	Store   auth.SessionStore
	Cleanup CleanupFunc
	// Ping checks store health for /readyz; nil when there is nothing to check.
	Ping func(ctx context.Context) error
}

// Factory creates session stores based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for store creation
type Config struct {
	Type         Type
	SQLiteDBPath string
	RedisURL     string
	// SessionTTL bounds how long Redis keeps a session.
	SessionTTL time.Duration
}

// Type names a session store implementation
type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
	Redis  Type = "redis"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the store type is known
func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory, Redis:
		return true
	default:
		return false
	}
}
