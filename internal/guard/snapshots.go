package guard

import (
	"fmt"
	"os"
)

// SnapshotManager owns baseline, last-valid, and pre-operation
// snapshots for a session. The in-memory baseline pointer is only a
// per-process cache; every invocation may be a fresh process, so all
// state is reconstructed from the StateStore on demand.
type SnapshotManager struct {
	store    StateStore
	scanner  Scanner
	contents ContentStore
	logger   Logger
	clock    Clock
	idgen    IDGenerator

	baseline *ProjectSnapshot
}

// NewSnapshotManager creates a SnapshotManager with the provided dependencies.
func NewSnapshotManager(store StateStore, scanner Scanner, contents ContentStore, logger Logger, clock Clock, idgen IDGenerator) *SnapshotManager {
	return &SnapshotManager{
		store:    store,
		scanner:  scanner,
		contents: contents,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// GetBaseline returns the session's baseline snapshot. The in-memory
// copy is used when it matches the session; otherwise the durable copy
// is loaded; only when neither exists is a fresh scan performed and
// persisted. When a valid baseline already exists this call has no
// side effects.
func (m *SnapshotManager) GetBaseline(sessionID string) (*ProjectSnapshot, error) {
	if m.baseline != nil && m.baseline.SessionID == sessionID {
		return m.baseline, nil
	}

	var snap ProjectSnapshot
	found, err := m.store.Get(KeyBaselineSnapshot+sessionID, &snap)
	if err != nil {
		return nil, fmt.Errorf("loading baseline snapshot: %w", err)
	}
	if found {
		m.baseline = &snap
		return m.baseline, nil
	}

	return m.InitializeBaseline(sessionID)
}

// InitializeBaseline scans the whole project and overwrites the
// persisted baseline, the persisted current total, and the in-memory
// pointers. This is the only operation that moves the fixed reference
// point used by snapshot-mode threshold checks.
func (m *SnapshotManager) InitializeBaseline(sessionID string) (*ProjectSnapshot, error) {
	files, err := m.scanner.ScanProject()
	if err != nil {
		return nil, fmt.Errorf("scanning project for baseline: %w", err)
	}

	snap := NewProjectSnapshot(m.idgen.New(), sessionID, m.clock.Now(), files, true)

	if err := m.store.Set(KeyBaselineSnapshot+sessionID, snap); err != nil {
		return nil, fmt.Errorf("persisting baseline snapshot: %w", err)
	}
	if err := m.store.Set(KeyLastValidSnapshot+sessionID, snap); err != nil {
		return nil, fmt.Errorf("persisting last-valid snapshot: %w", err)
	}

	state, err := m.store.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session state: %w", err)
	}
	if state == nil {
		state = &SessionState{ID: sessionID}
	}
	state.BaselineLineCount = snap.TotalLineCount
	state.BaselineRecorded = true
	state.CurrentValidLineCount = snap.TotalLineCount
	state.UpdatedAt = m.clock.Now()
	if err := m.store.PutSession(state); err != nil {
		return nil, fmt.Errorf("persisting session state: %w", err)
	}

	m.baseline = snap
	m.logger.Info("baseline initialized",
		"session", sessionID,
		"totalLines", snap.TotalLineCount,
		"files", len(snap.Files))
	return snap, nil
}

// TakePreOperationSnapshot captures the true current project state
// before an operation runs. It always performs a full rescan: a merge
// against cached state would compound drift from file changes the
// guard never observed (shell commands, other processes). The rescan
// result is cross-checked against the persisted current total and the
// persisted value is corrected on mismatch.
//
// The raw bytes of known affected paths are captured into the content
// store so a rejected operation can be reverted byte-for-byte.
func (m *SnapshotManager) TakePreOperationSnapshot(sessionID string, affected Affected) (*ProjectSnapshot, error) {
	files, err := m.scanner.ScanProject()
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	snap := NewProjectSnapshot(m.idgen.New(), sessionID, m.clock.Now(), files, false)

	state, err := m.store.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session state: %w", err)
	}
	if state == nil {
		state = &SessionState{
			ID:                    sessionID,
			BaselineLineCount:     snap.TotalLineCount,
			BaselineRecorded:      true,
			CurrentValidLineCount: snap.TotalLineCount,
		}
		state.UpdatedAt = m.clock.Now()
		if err := m.store.PutSession(state); err != nil {
			return nil, fmt.Errorf("persisting session state: %w", err)
		}
	} else if state.CurrentValidLineCount != snap.TotalLineCount {
		// Out-of-band changes happened since the last invocation.
		// Expected drift, not an error: correct in place and log.
		m.logger.Warn("current total drifted, correcting",
			"session", sessionID,
			"persisted", state.CurrentValidLineCount,
			"scanned", snap.TotalLineCount)
		state.CurrentValidLineCount = snap.TotalLineCount
		state.Corrections++
		state.UpdatedAt = m.clock.Now()
		if err := m.store.PutSession(state); err != nil {
			return nil, fmt.Errorf("persisting corrected session state: %w", err)
		}
	}

	if affected.Scope == ScopeKnown {
		m.capturePreContent(affected.Paths, snap)
	}

	if err := m.store.Set(KeyPreOpSnapshot+sessionID, snap); err != nil {
		return nil, fmt.Errorf("persisting pre-operation snapshot: %w", err)
	}
	return snap, nil
}

// capturePreContent stores the current bytes of each affected path in
// the content store, keyed by the checksum the scan just computed.
// Failures here degrade revert fidelity (the engine falls back to
// version control), so they are logged and skipped, never fatal.
func (m *SnapshotManager) capturePreContent(paths []string, snap *ProjectSnapshot) {
	for _, path := range paths {
		rec, ok := snap.Files[path]
		if !ok {
			continue // does not exist yet, or ignored
		}
		has, err := m.contents.Has(rec.ContentHash)
		if err == nil && has {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			m.logger.Debug("skipping content capture", "path", path, "error", err)
			continue
		}
		err = m.contents.Put(rec.ContentHash, f)
		f.Close()
		if err != nil {
			m.logger.Debug("content capture failed", "path", path, "error", err)
		}
	}
}

// LoadPreOperationSnapshot returns the snapshot captured at PRE time,
// or false when none was recorded (crash between PRE and POST, or a
// POST delivered without its PRE).
func (m *SnapshotManager) LoadPreOperationSnapshot(sessionID string) (*ProjectSnapshot, bool, error) {
	var snap ProjectSnapshot
	found, err := m.store.Get(KeyPreOpSnapshot+sessionID, &snap)
	if err != nil {
		return nil, false, fmt.Errorf("loading pre-operation snapshot: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return &snap, true, nil
}

// ClearPreOperationSnapshot discards the PRE snapshot once its POST has
// been processed.
func (m *SnapshotManager) ClearPreOperationSnapshot(sessionID string) error {
	return m.store.Delete(KeyPreOpSnapshot + sessionID)
}

// TakePostOperationSnapshot captures project state after an operation.
// When the affected set is unknown, only a full rescan is trustworthy.
// When it is known, the affected paths are rescanned and merged into
// the PRE snapshot's file map: the PRE snapshot is a fresh full rescan
// taken moments earlier, so files changed out of band between
// operations are already reflected in it. Merging into any older
// reference would carry entries the guard has not observed since and
// charge their drift to the operation being judged. Affected paths
// that vanished are removed from the merge.
func (m *SnapshotManager) TakePostOperationSnapshot(sessionID string, affected Affected) (*ProjectSnapshot, error) {
	if affected.Scope == ScopeKnown && len(affected.Paths) > 0 {
		pre, ok, err := m.LoadPreOperationSnapshot(sessionID)
		if err != nil {
			return nil, err
		}
		if ok {
			records, err := m.scanner.ScanFiles(affected.Paths)
			if err != nil {
				return nil, fmt.Errorf("rescanning affected files: %w", err)
			}
			files := pre.CloneFiles()
			for _, p := range affected.Paths {
				if rec, found := records[p]; found {
					files[p] = rec
				} else {
					delete(files, p) // deleted, ignored, or unreadable
				}
			}
			return NewProjectSnapshot(m.idgen.New(), sessionID, m.clock.Now(), files, false), nil
		}
	}

	files, err := m.scanner.ScanProject()
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	return NewProjectSnapshot(m.idgen.New(), sessionID, m.clock.Now(), files, false), nil
}

// UpdateLastValidSnapshot commits a snapshot as the new reference point
// for subsequent diffs and persists its total as the session's current
// valid line count, along with a durable copy of the whole snapshot
// for crash recovery.
func (m *SnapshotManager) UpdateLastValidSnapshot(snap *ProjectSnapshot) error {
	if err := m.store.Set(KeyLastValidSnapshot+snap.SessionID, snap); err != nil {
		return fmt.Errorf("persisting last-valid snapshot: %w", err)
	}

	state, err := m.store.GetSession(snap.SessionID)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}
	if state == nil {
		state = &SessionState{
			ID:                snap.SessionID,
			BaselineLineCount: snap.TotalLineCount,
			BaselineRecorded:  true,
		}
	}
	state.CurrentValidLineCount = snap.TotalLineCount
	state.UpdatedAt = m.clock.Now()
	if err := m.store.PutSession(state); err != nil {
		return fmt.Errorf("persisting session state: %w", err)
	}
	return nil
}

// CheckThreshold is the cumulative-mode check: the delta is measured
// against the movable last-valid total, which advances on every
// approved operation.
func (m *SnapshotManager) CheckThreshold(sessionID string, current *ProjectSnapshot, allowance int) (ThresholdCheck, error) {
	state, err := m.store.GetSession(sessionID)
	if err != nil {
		return ThresholdCheck{}, fmt.Errorf("loading session state: %w", err)
	}
	reference := current.TotalLineCount
	if state != nil {
		reference = state.CurrentValidLineCount
	}
	return EvaluateThreshold(current.TotalLineCount, reference, allowance), nil
}

// CheckSnapshotThreshold is the snapshot-mode check against the fixed
// baseline set by an explicit checkpoint. A session with no recorded
// baseline gets one silently initialized from the current total, and
// the check reports not exceeded.
func (m *SnapshotManager) CheckSnapshotThreshold(sessionID string, currentLineCount int, allowance int) (ThresholdCheck, error) {
	state, err := m.store.GetSession(sessionID)
	if err != nil {
		return ThresholdCheck{}, fmt.Errorf("loading session state: %w", err)
	}
	if state == nil || !state.BaselineRecorded {
		if state == nil {
			state = &SessionState{ID: sessionID}
		}
		state.BaselineLineCount = currentLineCount
		state.BaselineRecorded = true
		state.CurrentValidLineCount = currentLineCount
		state.UpdatedAt = m.clock.Now()
		if err := m.store.PutSession(state); err != nil {
			return ThresholdCheck{}, fmt.Errorf("persisting session state: %w", err)
		}
		m.logger.Info("baseline threshold initialized", "session", sessionID, "totalLines", currentLineCount)
		return ThresholdCheck{Current: currentLineCount, Baseline: currentLineCount}, nil
	}
	return EvaluateThreshold(currentLineCount, state.BaselineLineCount, allowance), nil
}
