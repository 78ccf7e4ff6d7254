package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ccguard/internal/guard"
	"ccguard/internal/state/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// enabledKey is the kv key holding the enforcement switch.
const enabledKey = "guard/enabled"

// SQLiteStore implements guard.StateStore on a SQLite database. Every
// hook invocation opens the database fresh; SQLite's file locking
// resolves cross-process writes as last-write-wins, which the guard
// tolerates by re-scanning-and-correcting on the read path.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and migrates) the session-state database.
// path can be a file path or ":memory:".
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := openConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating session-state database: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// openConnection opens a SQLite connection with the PRAGMAs the guard
// relies on.
func openConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	// Hook invocations from concurrent tools can overlap briefly.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

// Get unmarshals the JSON value stored under key into out.
func (s *SQLiteStore) Get(key string, out any) (bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading key %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, fmt.Errorf("decoding value for key %q: %w", key, err)
	}
	return true, nil
}

// Set stores value under key, JSON-serialized, overwriting any
// previous value.
func (s *SQLiteStore) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for key %q: %w", key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}
	return nil
}

// Delete removes a key. Missing keys are not an error.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}
	return nil
}

// GetSession returns the persisted session state, or nil when the
// session has never been seen.
func (s *SQLiteStore) GetSession(sessionID string) (*guard.SessionState, error) {
	row := s.db.QueryRow(
		`SELECT id, baseline_line_count, baseline_recorded, current_valid_line_count,
		        allowed_positive_delta, operations_approved, operations_blocked,
		        corrections, updated_at
		 FROM sessions WHERE id = ?`, sessionID)

	var st guard.SessionState
	var recorded int
	err := row.Scan(&st.ID, &st.BaselineLineCount, &recorded, &st.CurrentValidLineCount,
		&st.AllowedPositiveDelta, &st.OperationsApproved, &st.OperationsBlocked,
		&st.Corrections, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session %q: %w", sessionID, err)
	}
	st.BaselineRecorded = recorded != 0
	return &st, nil
}

// PutSession creates or replaces the persisted session state.
func (s *SQLiteStore) PutSession(state *guard.SessionState) error {
	recorded := 0
	if state.BaselineRecorded {
		recorded = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, baseline_line_count, baseline_recorded, current_valid_line_count,
		                       allowed_positive_delta, operations_approved, operations_blocked,
		                       corrections, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   baseline_line_count = excluded.baseline_line_count,
		   baseline_recorded = excluded.baseline_recorded,
		   current_valid_line_count = excluded.current_valid_line_count,
		   allowed_positive_delta = excluded.allowed_positive_delta,
		   operations_approved = excluded.operations_approved,
		   operations_blocked = excluded.operations_blocked,
		   corrections = excluded.corrections,
		   updated_at = excluded.updated_at`,
		state.ID, state.BaselineLineCount, recorded, state.CurrentValidLineCount,
		state.AllowedPositiveDelta, state.OperationsApproved, state.OperationsBlocked,
		state.Corrections, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("writing session %q: %w", state.ID, err)
	}
	return nil
}

// Enabled reports the enforcement switch; a store with no recorded
// preference defaults to enabled.
func (s *SQLiteStore) Enabled() (bool, error) {
	var enabled bool
	found, err := s.Get(enabledKey, &enabled)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return enabled, nil
}

// SetEnabled records the enforcement switch.
func (s *SQLiteStore) SetEnabled(enabled bool) error {
	return s.Set(enabledKey, enabled)
}

// RecordDecision increments the session's approved or blocked counter.
// An unknown session gets a row so counters are never lost.
func (s *SQLiteStore) RecordDecision(sessionID string, approved bool) error {
	column := "operations_blocked"
	if approved {
		column = "operations_approved"
	}
	res, err := s.db.Exec(
		"UPDATE sessions SET "+column+" = "+column+" + 1, updated_at = ? WHERE id = ?",
		time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("recording decision for session %q: %w", sessionID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording decision for session %q: %w", sessionID, err)
	}
	if affected == 0 {
		st := &guard.SessionState{ID: sessionID, UpdatedAt: time.Now().UTC()}
		if approved {
			st.OperationsApproved = 1
		} else {
			st.OperationsBlocked = 1
		}
		return s.PutSession(st)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteStore implements guard.StateStore.
var _ guard.StateStore = (*SQLiteStore)(nil)
