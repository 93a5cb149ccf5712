package store

import (
	"fmt"
	"strings"
)

// New creates a store from config. An empty type defaults to sqlite.
func New(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "sqlite":
		return NewSQLiteStore(cfg)
	case "postgres", "postgresql":
		return NewPostgresStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported store type: %s (supported: sqlite, postgres)", cfg.Type)
	}
}
