package guard

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// Phase is the position of an event relative to the tool execution.
type Phase string

const (
	PhasePre  Phase = "PreToolUse"
	PhasePost Phase = "PostToolUse"
)

// AffectedScope distinguishes operations whose touched paths are known
// from operations (arbitrary shell commands) that may have touched
// anything. The unknown case is an explicit variant, not an empty
// list: it is the condition that forces a full project rescan.
type AffectedScope int

const (
	// ScopeKnown means Paths lists every file the operation touches.
	ScopeKnown AffectedScope = iota
	// ScopeUnknown means the operation kind does not report paths;
	// the whole project must be rescanned.
	ScopeUnknown
	// ScopeNone means the operation cannot modify files at all.
	ScopeNone
)

// Affected is the set of paths an operation touches, or the explicit
// statement that the set is unknown.
type Affected struct {
	Scope AffectedScope
	Paths []string // absolute; only meaningful for ScopeKnown
}

// KnownAffected builds a known-scope affected set.
func KnownAffected(paths ...string) Affected {
	return Affected{Scope: ScopeKnown, Paths: paths}
}

// UnknownAffected marks the affected set as unknowable.
func UnknownAffected() Affected {
	return Affected{Scope: ScopeUnknown}
}

// HookEvent is a parsed, recognized operation event.
type HookEvent struct {
	SessionID string
	Phase     Phase
	ToolName  string
	Affected  Affected
}

// rawHookEvent mirrors the JSON payload delivered on stdin by the
// assistant's hook mechanism. Unknown fields are ignored.
type rawHookEvent struct {
	SessionID     string          `json:"session_id"`
	HookEventName string          `json:"hook_event_name"`
	ToolName      string          `json:"tool_name"`
	CWD           string          `json:"cwd"`
	ToolInput     json.RawMessage `json:"tool_input"`
}

// pathToolInput covers every tool whose input names a single file.
type pathToolInput struct {
	FilePath     string `json:"file_path"`
	NotebookPath string `json:"notebook_path"`
}

// readOnlyTools never modify the working tree; events for them are
// approved without any scanning.
var readOnlyTools = map[string]bool{
	"Read":      true,
	"Glob":      true,
	"Grep":      true,
	"LS":        true,
	"WebFetch":  true,
	"WebSearch": true,
}

// ErrNotApplicable marks payloads the guard does not understand. The
// caller fails open: unrecognized input must not block unrelated
// operations.
var ErrNotApplicable = fmt.Errorf("event not applicable")

// ParseHookEvent decodes a raw hook payload. Payloads that are not
// valid JSON, lack a session, or carry an unrecognized phase return
// ErrNotApplicable (wrapped with the detail).
func ParseHookEvent(raw []byte) (*HookEvent, error) {
	var r rawHookEvent
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrNotApplicable, err)
	}
	if r.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session_id", ErrNotApplicable)
	}

	phase := Phase(r.HookEventName)
	if phase != PhasePre && phase != PhasePost {
		return nil, fmt.Errorf("%w: unhandled event %q", ErrNotApplicable, r.HookEventName)
	}

	ev := &HookEvent{
		SessionID: r.SessionID,
		Phase:     phase,
		ToolName:  r.ToolName,
		Affected:  classifyTool(r.ToolName, r.ToolInput, r.CWD),
	}
	return ev, nil
}

// classifyTool maps a tool invocation onto the affected-files variant.
// File-editing tools report the single path they touch; anything else
// that can write (Bash and unknown tools) is an unknown scope.
func classifyTool(toolName string, input json.RawMessage, cwd string) Affected {
	if readOnlyTools[toolName] {
		return Affected{Scope: ScopeNone}
	}

	switch toolName {
	case "Write", "Edit", "MultiEdit", "NotebookEdit":
		var in pathToolInput
		if err := json.Unmarshal(input, &in); err != nil {
			return UnknownAffected()
		}
		path := in.FilePath
		if path == "" {
			path = in.NotebookPath
		}
		if path == "" {
			return UnknownAffected()
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
		return KnownAffected(filepath.Clean(path))
	default:
		return UnknownAffected()
	}
}
