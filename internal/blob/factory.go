package blob

import (
	"fmt"

	"ccguard/internal/config"
	"ccguard/internal/guard"
)

// NewStoreFromConfig creates a ContentStore implementation based on the
// contents config type.
func NewStoreFromConfig(cfg config.ContentsConfig) (guard.ContentStore, error) {
	switch cfg.Type {
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("root required for filesystem content store")
		}
		return NewFileSystemStore(cfg.Root)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown content store type: %s", cfg.Type)
	}
}
