package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"ccguard/internal/guard"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/ccguard",
		LogDir:  "/home/user/.local/share/ccguard/log",
		Enforcement: EnforcementConfig{
			Strategy:             "snapshot",
			Scope:                "session-wide",
			AllowedPositiveDelta: 25,
			LimitPolicy:          "soft",
		},
		Counting: CountingConfig{CountBlankLines: true},
		Store:    StoreConfig{Type: "sqlite", DataDir: "/home/user/.local/share/ccguard/state"},
		Contents: ContentsConfig{Type: "filesystem", Root: "/home/user/.local/share/ccguard/contents"},
		Filesystem: FilesystemConfig{
			Ignore: []string{"*.log", "testdata/"},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Enforcement != original.Enforcement {
		t.Errorf("Enforcement = %+v, want %+v", got.Enforcement, original.Enforcement)
	}
	if !got.Counting.CountBlankLines {
		t.Error("Counting.CountBlankLines = false, want true")
	}
	if got.Store != original.Store {
		t.Errorf("Store = %+v, want %+v", got.Store, original.Store)
	}
	if got.Contents != original.Contents {
		t.Errorf("Contents = %+v, want %+v", got.Contents, original.Contents)
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/ccguard")

	if cfg.BaseDir != "/data/ccguard" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/ccguard")
	}
	if cfg.LogDir != "/data/ccguard/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/ccguard/log")
	}
	if cfg.Store.Type != "sqlite" || cfg.Store.DataDir != "/data/ccguard/state" {
		t.Errorf("Store = %+v, want sqlite under the base dir", cfg.Store)
	}
	if cfg.Contents.Type != "filesystem" || cfg.Contents.Root != "/data/ccguard/contents" {
		t.Errorf("Contents = %+v, want filesystem under the base dir", cfg.Contents)
	}
	if cfg.Enforcement.LimitPolicy != "hard" {
		t.Errorf("LimitPolicy = %q, want %q", cfg.Enforcement.LimitPolicy, "hard")
	}
}

func TestCountingConfig_Rule(t *testing.T) {
	if rule := (CountingConfig{}).Rule(); !rule.IgnoreBlankLines {
		t.Error("zero-value config must ignore blank lines")
	}
	if rule := (CountingConfig{CountBlankLines: true}).Rule(); rule.IgnoreBlankLines {
		t.Error("count_blank_lines = true must not ignore blank lines")
	}
}

func TestConfig_Settings(t *testing.T) {
	t.Run("empty fields default", func(t *testing.T) {
		cfg := &Config{}
		s, err := cfg.Settings()
		if err != nil {
			t.Fatalf("Settings() error = %v", err)
		}
		if s.Strategy != guard.StrategyCumulative {
			t.Errorf("Strategy = %q, want cumulative", s.Strategy)
		}
		if s.Scope != guard.ScopePerOperation {
			t.Errorf("Scope = %q, want per-operation", s.Scope)
		}
		if s.Policy != guard.PolicyHard {
			t.Errorf("Policy = %q, want hard", s.Policy)
		}
		if s.AllowedPositiveDelta != 0 {
			t.Errorf("AllowedPositiveDelta = %d, want 0", s.AllowedPositiveDelta)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		cases := []EnforcementConfig{
			{Strategy: "hourly"},
			{Scope: "global"},
			{LimitPolicy: "medium"},
			{AllowedPositiveDelta: -1},
		}
		for _, e := range cases {
			cfg := &Config{Enforcement: e}
			if _, err := cfg.Settings(); err == nil {
				t.Errorf("Settings() with %+v: expected error", e)
			}
		}
	})
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ccguard.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ccguard.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ccguard.toml")
		cfg := NewConfig(dir)
		cfg.Enforcement.AllowedPositiveDelta = 10

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Enforcement.AllowedPositiveDelta != 10 {
			t.Errorf("AllowedPositiveDelta = %d, want 10", got.Enforcement.AllowedPositiveDelta)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/ccguard.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
