package testutil

import (
	"testing"

	"ccguard/internal/blob"
	"ccguard/internal/guard"
	"ccguard/internal/scan"
	"ccguard/internal/state"
)

// NewTestStateStore returns an in-memory state store that round-trips
// values through the same JSON path as the SQLite store.
func NewTestStateStore() guard.StateStore {
	return state.NewMemoryStore()
}

// NewTestContentStore returns an in-memory content store.
func NewTestContentStore() *blob.MemoryStore {
	return blob.NewMemoryStore()
}

// NewTestScanner returns a disk-backed scanner rooted at root with the
// built-in ignore rules and the default counting rule. Use it when a
// test works against real files in a temp directory.
func NewTestScanner(t *testing.T, root string) guard.Scanner {
	t.Helper()
	matcher := scan.NewIgnoreMatcher(root, nil)
	s, err := scan.NewProjectScanner(root, matcher, guard.DefaultCountingRule(), guard.NewNopLogger())
	if err != nil {
		t.Fatalf("creating test scanner: %v", err)
	}
	return s
}
