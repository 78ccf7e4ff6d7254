package state

import (
	"fmt"
	"os"
	"path/filepath"

	"ccguard/internal/config"
	"ccguard/internal/guard"
)

// NewStoreFromConfig creates a StateStore implementation based on the
// store config type.
func NewStoreFromConfig(cfg config.StoreConfig) (guard.StateStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "sessions.db"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
