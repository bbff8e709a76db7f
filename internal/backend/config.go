package backend

import (
	"fmt"

	"kern/internal/config"
)

// FromAppConfig converts the application config to store config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := Type(appConfig.SessionBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid session backend in config: %s", appConfig.SessionBackend)
	}

	return Config{
		Type:         t,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		RedisURL:     appConfig.RedisURL,
		SessionTTL:   appConfig.SessionTTL,
	}, nil
}

// Validate validates the store configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid session backend %q: want one of %v", c.Type, Types())
	}
	if c.Type == SQLite && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.Type == Redis && c.RedisURL == "" {
		return fmt.Errorf("redis url is required for redis backend")
	}
	return nil
}

// Types returns all valid store types
func Types() []Type {
	return []Type{Memory, SQLite, Redis}
}
