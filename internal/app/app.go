package app

import (
	"fmt"
	"os"
	"time"

	"ccguard/internal/blob"
	"ccguard/internal/config"
	"ccguard/internal/guard"
	"ccguard/internal/scan"
	"ccguard/internal/state"
	"ccguard/internal/vcs"
)

// GuardApp is the application layer between the CLI and GuardService.
// It constructs all dependencies from config, exposes high-level operations,
// and manages the state store lifecycle on Close.
type GuardApp struct {
	cfg     *config.Config
	store   guard.StateStore
	service *guard.GuardService
	logFile *os.File
}

// SessionStatus reports the guard's view of a session for the status command.
type SessionStatus struct {
	Enabled bool
	Session *guard.SessionState
}

// NewGuardApp creates a fully wired GuardApp from the given config.
// root is the project directory the guard watches. operation identifies
// the CLI command being run (e.g. "Hook", "Snapshot").
// The caller must call Close when done.
func NewGuardApp(cfg *config.Config, root string, operation string) (*GuardApp, error) {
	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	matcher, err := scan.NewProjectIgnoreMatcher(root, cfg.Filesystem.Ignore)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating ignore matcher: %w", err)
	}

	scanner, err := scan.NewProjectScanner(root, matcher, cfg.Counting.Rule(), log)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating scanner: %w", err)
	}

	store, err := state.NewStoreFromConfig(cfg.Store)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating state store: %w", err)
	}

	contents, err := blob.NewStoreFromConfig(cfg.Contents)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating content store: %w", err)
	}

	settings, err := cfg.Settings()
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("reading enforcement settings: %w", err)
	}

	checkout := vcs.NewGitCheckout(root)
	snapshots := guard.NewSnapshotManager(store, scanner, contents, log, guard.RealClock{}, guard.UUIDGenerator{})
	revert := guard.NewRevertEngine(contents, checkout, log)
	svc := guard.NewGuardService(settings, snapshots, revert, contents, store, log)

	return &GuardApp{
		cfg:     cfg,
		store:   store,
		service: svc,
		logFile: logFile,
	}, nil
}

// ProcessEvent feeds a raw hook payload through the guard and returns
// the decision to emit on stdout.
func (a *GuardApp) ProcessEvent(raw []byte) guard.Decision {
	return a.service.ProcessEvent(raw)
}

// TakeSnapshot scans the project and records a fresh baseline for the session.
func (a *GuardApp) TakeSnapshot(sessionID string) (*guard.SnapshotSummary, error) {
	return a.service.TakeSnapshot(sessionID)
}

// Status returns whether enforcement is enabled and, if the session is
// known, its accumulated counters.
func (a *GuardApp) Status(sessionID string) (*SessionStatus, error) {
	enabled, err := a.store.Enabled()
	if err != nil {
		return nil, fmt.Errorf("reading enabled flag: %w", err)
	}
	st := &SessionStatus{Enabled: enabled}
	if sessionID != "" {
		sess, err := a.store.GetSession(sessionID)
		if err != nil {
			return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
		}
		st.Session = sess
	}
	return st, nil
}

// SetEnabled toggles enforcement for all future hook invocations.
func (a *GuardApp) SetEnabled(enabled bool) error {
	if err := a.store.SetEnabled(enabled); err != nil {
		return fmt.Errorf("updating enabled flag: %w", err)
	}
	return nil
}

// Close releases the state store and the log file.
func (a *GuardApp) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing state store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
