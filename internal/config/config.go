package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"ccguard/internal/guard"
)

// Config is the main configuration for ccguard.
type Config struct {
	BaseDir     string            `toml:"base_dir"`
	LogDir      string            `toml:"log_dir"`
	Enforcement EnforcementConfig `toml:"enforcement"`
	Counting    CountingConfig    `toml:"counting"`
	Store       StoreConfig       `toml:"store"`
	Contents    ContentsConfig    `toml:"contents"`
	Filesystem  FilesystemConfig  `toml:"filesystem"`
}

// EnforcementConfig holds the threshold knobs.
type EnforcementConfig struct {
	Strategy             string `toml:"strategy"`               // "cumulative" (default) or "snapshot"
	Scope                string `toml:"scope"`                  // "per-operation" (default) or "session-wide"
	AllowedPositiveDelta int    `toml:"allowed_positive_delta"` // non-negative
	LimitPolicy          string `toml:"limit_policy"`           // "hard" (default) or "soft"
}

// CountingConfig holds the line-counting rule. Blank lines are ignored
// by default; the flag is inverted so the zero value is the default.
type CountingConfig struct {
	CountBlankLines bool `toml:"count_blank_lines"`
}

// Rule converts the configuration into the shared counting rule.
func (c CountingConfig) Rule() guard.CountingRule {
	return guard.CountingRule{IgnoreBlankLines: !c.CountBlankLines}
}

// StoreConfig selects the session-state backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`               // "sqlite" (default) or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ContentsConfig selects the content-store backend used for byte-exact
// reverts.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ContentsConfig struct {
	Type string `toml:"type"`           // "filesystem" (default) or "memory"
	Root string `toml:"root,omitempty"` // only used for type=filesystem
}

// FilesystemConfig holds scanner-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"` // extra ignore patterns, layered over built-ins
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Enforcement: EnforcementConfig{
			Strategy:             string(guard.StrategyCumulative),
			Scope:                string(guard.ScopePerOperation),
			AllowedPositiveDelta: 0,
			LimitPolicy:          string(guard.PolicyHard),
		},
		Store: StoreConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "state"),
		},
		Contents: ContentsConfig{
			Type: "filesystem",
			Root: filepath.Join(baseDir, "contents"),
		},
	}
}

// Settings converts the enforcement section into guard settings,
// applying defaults for empty fields.
func (c *Config) Settings() (guard.Settings, error) {
	s := guard.Settings{
		Strategy:             guard.Strategy(c.Enforcement.Strategy),
		Scope:                guard.Scope(c.Enforcement.Scope),
		Policy:               guard.LimitPolicy(c.Enforcement.LimitPolicy),
		AllowedPositiveDelta: c.Enforcement.AllowedPositiveDelta,
	}
	if s.Strategy == "" {
		s.Strategy = guard.StrategyCumulative
	}
	if s.Scope == "" {
		s.Scope = guard.ScopePerOperation
	}
	if s.Policy == "" {
		s.Policy = guard.PolicyHard
	}

	switch s.Strategy {
	case guard.StrategyCumulative, guard.StrategySnapshot:
	default:
		return s, fmt.Errorf("unknown strategy: %s", s.Strategy)
	}
	switch s.Scope {
	case guard.ScopePerOperation, guard.ScopeSessionWide:
	default:
		return s, fmt.Errorf("unknown scope: %s", s.Scope)
	}
	switch s.Policy {
	case guard.PolicyHard, guard.PolicySoft:
	default:
		return s, fmt.Errorf("unknown limit policy: %s", s.Policy)
	}
	if s.AllowedPositiveDelta < 0 {
		return s, fmt.Errorf("allowed_positive_delta must be non-negative, got %d", s.AllowedPositiveDelta)
	}
	return s, nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
