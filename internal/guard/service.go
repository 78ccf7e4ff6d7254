package guard

import (
	"fmt"
	"time"
)

// Settings are the enforcement knobs read from configuration.
type Settings struct {
	Strategy             Strategy
	Scope                Scope
	Policy               LimitPolicy
	AllowedPositiveDelta int
}

// Decision is the guard's answer to one operation event. Reason is
// free text for display; only Decision has a stable schema.
type Decision struct {
	Decision string `json:"decision"` // "approve" or "block"
	Reason   string `json:"reason"`
}

// Approve builds an approving decision.
func Approve(reason string) Decision { return Decision{Decision: "approve", Reason: reason} }

// Block builds a blocking decision.
func Block(reason string) Decision { return Decision{Decision: "block", Reason: reason} }

// SnapshotSummary is the result of an explicit checkpoint.
type SnapshotSummary struct {
	TotalLineCount int       `json:"totalLineCount"`
	FileCount      int       `json:"fileCount"`
	Timestamp      time.Time `json:"timestamp"`
}

// GuardService routes operation events through the snapshot, diff,
// threshold, and revert machinery. One instance handles one event;
// cross-invocation state lives entirely in the StateStore.
type GuardService struct {
	settings  Settings
	snapshots *SnapshotManager
	revert    *RevertEngine
	contents  ContentStore
	store     StateStore
	logger    Logger
}

// NewGuardService creates a GuardService with the provided dependencies.
func NewGuardService(settings Settings, snapshots *SnapshotManager, revert *RevertEngine, contents ContentStore, store StateStore, logger Logger) *GuardService {
	return &GuardService{
		settings:  settings,
		snapshots: snapshots,
		revert:    revert,
		contents:  contents,
		store:     store,
		logger:    logger,
	}
}

// ProcessEvent is the single entry point for raw hook payloads. It
// never returns an error to the caller: anything the guard cannot
// judge fails open with an explanatory approval.
func (s *GuardService) ProcessEvent(raw []byte) Decision {
	ev, err := ParseHookEvent(raw)
	if err != nil {
		s.logger.Debug("event not applicable", "error", err)
		return Approve(fmt.Sprintf("Not applicable: %v.", err))
	}

	enabled, err := s.store.Enabled()
	if err != nil {
		s.logger.Error("reading enabled state", "error", err)
		return Approve("Guard state unavailable; approving without validation.")
	}
	if !enabled {
		return Approve("Guard is disabled.")
	}

	if ev.Affected.Scope == ScopeNone {
		return Approve(fmt.Sprintf("Tool %q cannot modify files.", ev.ToolName))
	}

	switch ev.Phase {
	case PhasePre:
		return s.handlePre(ev)
	case PhasePost:
		return s.handlePost(ev)
	default:
		return Approve(fmt.Sprintf("Unhandled phase %q.", ev.Phase))
	}
}

// handlePre captures state before the operation executes. PRE always
// approves: the change has not happened yet and cannot be measured.
func (s *GuardService) handlePre(ev *HookEvent) Decision {
	if _, err := s.snapshots.GetBaseline(ev.SessionID); err != nil {
		s.logger.Error("ensuring baseline", "session", ev.SessionID, "error", err)
		return Approve("Baseline unavailable; approving without validation.")
	}
	if _, err := s.snapshots.TakePreOperationSnapshot(ev.SessionID, ev.Affected); err != nil {
		s.logger.Error("pre-operation snapshot failed", "session", ev.SessionID, "error", err)
		return Approve("Pre-operation snapshot failed; approving without validation.")
	}
	return Approve("Pre-operation state captured.")
}

// handlePost measures the operation's effect and enforces the
// threshold. A POST without its PRE cannot be judged or safely
// reverted, so it approves with a note.
func (s *GuardService) handlePost(ev *HookEvent) Decision {
	pre, ok, err := s.snapshots.LoadPreOperationSnapshot(ev.SessionID)
	if err != nil {
		s.logger.Error("loading pre-operation snapshot", "session", ev.SessionID, "error", err)
		return Approve("Pre-operation reference unavailable; approving without validation.")
	}
	if !ok {
		return Approve("No pre-operation reference; validation could not occur.")
	}

	post, err := s.snapshots.TakePostOperationSnapshot(ev.SessionID, ev.Affected)
	if err != nil {
		s.logger.Error("post-operation snapshot failed", "session", ev.SessionID, "error", err)
		return Approve("Post-operation snapshot failed; approving without validation.")
	}

	diff := CompareSnapshots(pre, post)
	check, err := s.evaluate(ev.SessionID, post)
	if err != nil {
		s.logger.Error("threshold evaluation failed", "session", ev.SessionID, "error", err)
		return Approve("Threshold evaluation failed; approving without validation.")
	}

	allowance := s.settings.AllowedPositiveDelta

	if !check.Exceeded {
		if err := s.commitApproved(ev.SessionID, post); err != nil {
			s.logger.Error("committing approved state", "session", ev.SessionID, "error", err)
		}
		return Approve(approveReason(check, diff, allowance))
	}

	if s.settings.Policy == PolicySoft {
		if err := s.commitApproved(ev.SessionID, post); err != nil {
			s.logger.Error("committing approved state", "session", ev.SessionID, "error", err)
		}
		return Approve(warnReason(check, diff, allowance))
	}

	// Hard limit: revert to the pre-operation state. The diff preview
	// must be rendered first, while the offending bytes are on disk.
	preview := diffPreview(diff, pre, s.contents)

	if err := s.revert.RevertToSnapshot(diff.ChangedPaths(), pre); err != nil {
		s.recordDecision(ev.SessionID, false)
		s.clearPre(ev.SessionID)
		return Block(revertFailureReason(check, err))
	}

	s.recordDecision(ev.SessionID, false)
	s.clearPre(ev.SessionID)
	return Block(blockReason(check, diff, allowance, preview))
}

// evaluate selects the reference frame: the snapshot strategy and the
// session-wide scope measure against the session baseline; everything
// else measures against the movable last-valid total.
func (s *GuardService) evaluate(sessionID string, post *ProjectSnapshot) (ThresholdCheck, error) {
	allowance := s.settings.AllowedPositiveDelta
	if s.settings.Strategy == StrategySnapshot || s.settings.Scope == ScopeSessionWide {
		return s.snapshots.CheckSnapshotThreshold(sessionID, post.TotalLineCount, allowance)
	}
	return s.snapshots.CheckThreshold(sessionID, post, allowance)
}

// commitApproved advances the last-valid reference and bookkeeping
// after an approved operation.
func (s *GuardService) commitApproved(sessionID string, post *ProjectSnapshot) error {
	if err := s.snapshots.UpdateLastValidSnapshot(post); err != nil {
		return err
	}
	s.recordDecision(sessionID, true)
	s.clearPre(sessionID)
	return nil
}

func (s *GuardService) recordDecision(sessionID string, approved bool) {
	if err := s.store.RecordDecision(sessionID, approved); err != nil {
		s.logger.Warn("recording decision", "session", sessionID, "error", err)
	}
}

func (s *GuardService) clearPre(sessionID string) {
	if err := s.snapshots.ClearPreOperationSnapshot(sessionID); err != nil {
		s.logger.Warn("clearing pre-operation snapshot", "session", sessionID, "error", err)
	}
}

// TakeSnapshot is the explicit checkpoint action: it re-baselines the
// session from a fresh full scan and reports the new reference point.
func (s *GuardService) TakeSnapshot(sessionID string) (*SnapshotSummary, error) {
	snap, err := s.snapshots.InitializeBaseline(sessionID)
	if err != nil {
		return nil, fmt.Errorf("initializing baseline: %w", err)
	}
	return &SnapshotSummary{
		TotalLineCount: snap.TotalLineCount,
		FileCount:      len(snap.Files),
		Timestamp:      snap.Timestamp,
	}, nil
}
