package state_test

import (
	"path/filepath"
	"testing"
	"time"

	"ccguard/internal/guard"
	"ccguard/internal/state"
)

func newSQLiteStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	s, err := state.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stores returns every StateStore implementation under test, so both
// backends are held to the same contract.
func stores(t *testing.T) map[string]guard.StateStore {
	return map[string]guard.StateStore{
		"sqlite": newSQLiteStore(t),
		"memory": state.NewMemoryStore(),
	}
}

func TestStateStore_KV(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			type payload struct {
				Name  string `json:"name"`
				Count int    `json:"count"`
			}

			var out payload
			found, err := s.Get("missing", &out)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if found {
				t.Error("Get(missing) found = true, want false")
			}

			in := payload{Name: "snapshot", Count: 7}
			if err := s.Set("k", in); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			found, err = s.Get("k", &out)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !found {
				t.Fatal("Get() found = false after Set")
			}
			if out != in {
				t.Errorf("Get() = %+v, want %+v", out, in)
			}

			// Overwrite.
			in.Count = 9
			if err := s.Set("k", in); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if _, err := s.Get("k", &out); err != nil {
				t.Fatal(err)
			}
			if out.Count != 9 {
				t.Errorf("Count after overwrite = %d, want 9", out.Count)
			}

			if err := s.Delete("k"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			found, _ = s.Get("k", &out)
			if found {
				t.Error("key still present after Delete")
			}

			// Deleting a missing key is not an error.
			if err := s.Delete("k"); err != nil {
				t.Errorf("Delete(missing) error = %v", err)
			}
		})
	}
}

func TestStateStore_Sessions(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.GetSession("unknown")
			if err != nil {
				t.Fatalf("GetSession() error = %v", err)
			}
			if got != nil {
				t.Errorf("GetSession(unknown) = %+v, want nil", got)
			}

			in := &guard.SessionState{
				ID:                    "session-1",
				BaselineLineCount:     100,
				BaselineRecorded:      true,
				CurrentValidLineCount: 104,
				AllowedPositiveDelta:  5,
				Corrections:           2,
				UpdatedAt:             time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			}
			if err := s.PutSession(in); err != nil {
				t.Fatalf("PutSession() error = %v", err)
			}

			got, err = s.GetSession("session-1")
			if err != nil {
				t.Fatalf("GetSession() error = %v", err)
			}
			if got == nil {
				t.Fatal("GetSession() = nil after PutSession")
			}
			if got.BaselineLineCount != 100 || got.CurrentValidLineCount != 104 {
				t.Errorf("counts = %d/%d, want 100/104", got.BaselineLineCount, got.CurrentValidLineCount)
			}
			if !got.BaselineRecorded {
				t.Error("BaselineRecorded = false, want true")
			}
			if got.Corrections != 2 {
				t.Errorf("Corrections = %d, want 2", got.Corrections)
			}

			// Upsert replaces.
			in.CurrentValidLineCount = 110
			if err := s.PutSession(in); err != nil {
				t.Fatal(err)
			}
			got, _ = s.GetSession("session-1")
			if got.CurrentValidLineCount != 110 {
				t.Errorf("CurrentValidLineCount = %d, want 110", got.CurrentValidLineCount)
			}
		})
	}
}

func TestStateStore_Enabled(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			enabled, err := s.Enabled()
			if err != nil {
				t.Fatalf("Enabled() error = %v", err)
			}
			if !enabled {
				t.Error("Enabled() = false, want true by default")
			}

			if err := s.SetEnabled(false); err != nil {
				t.Fatalf("SetEnabled() error = %v", err)
			}
			enabled, _ = s.Enabled()
			if enabled {
				t.Error("Enabled() = true after SetEnabled(false)")
			}

			if err := s.SetEnabled(true); err != nil {
				t.Fatal(err)
			}
			enabled, _ = s.Enabled()
			if !enabled {
				t.Error("Enabled() = false after SetEnabled(true)")
			}
		})
	}
}

func TestStateStore_RecordDecision(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			// Unknown session gets a row.
			if err := s.RecordDecision("session-1", true); err != nil {
				t.Fatalf("RecordDecision() error = %v", err)
			}
			if err := s.RecordDecision("session-1", true); err != nil {
				t.Fatal(err)
			}
			if err := s.RecordDecision("session-1", false); err != nil {
				t.Fatal(err)
			}

			got, err := s.GetSession("session-1")
			if err != nil {
				t.Fatal(err)
			}
			if got.OperationsApproved != 2 {
				t.Errorf("OperationsApproved = %d, want 2", got.OperationsApproved)
			}
			if got.OperationsBlocked != 1 {
				t.Errorf("OperationsBlocked = %d, want 1", got.OperationsBlocked)
			}
		})
	}
}

// TestSQLiteStore_Reopen covers cross-invocation durability: a second
// store over the same file sees everything the first one wrote.
func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	first, err := state.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := first.Set("snapshot/baseline/s1", map[string]int{"total": 42}); err != nil {
		t.Fatal(err)
	}
	if err := first.PutSession(&guard.SessionState{ID: "s1", CurrentValidLineCount: 42, UpdatedAt: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := state.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer second.Close()

	var out map[string]int
	found, err := second.Get("snapshot/baseline/s1", &out)
	if err != nil || !found {
		t.Fatalf("Get() after reopen: found=%v err=%v", found, err)
	}
	if out["total"] != 42 {
		t.Errorf("total = %d, want 42", out["total"])
	}

	sess, err := second.GetSession("s1")
	if err != nil || sess == nil {
		t.Fatalf("GetSession() after reopen: sess=%v err=%v", sess, err)
	}
	if sess.CurrentValidLineCount != 42 {
		t.Errorf("CurrentValidLineCount = %d, want 42", sess.CurrentValidLineCount)
	}
}
