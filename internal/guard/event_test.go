package guard_test

import (
	"errors"
	"testing"

	"ccguard/internal/guard"
)

func TestParseHookEvent(t *testing.T) {
	t.Run("parses a pre-operation write event", func(t *testing.T) {
		raw := []byte(`{
			"session_id": "session-1",
			"hook_event_name": "PreToolUse",
			"tool_name": "Write",
			"cwd": "/home/user/project",
			"tool_input": {"file_path": "/home/user/project/main.go", "content": "..."}
		}`)
		ev, err := guard.ParseHookEvent(raw)
		if err != nil {
			t.Fatalf("ParseHookEvent() error = %v", err)
		}
		if ev.Phase != guard.PhasePre {
			t.Errorf("Phase = %q, want %q", ev.Phase, guard.PhasePre)
		}
		if ev.Affected.Scope != guard.ScopeKnown {
			t.Errorf("Scope = %v, want ScopeKnown", ev.Affected.Scope)
		}
		if len(ev.Affected.Paths) != 1 || ev.Affected.Paths[0] != "/home/user/project/main.go" {
			t.Errorf("Paths = %v, want [/home/user/project/main.go]", ev.Affected.Paths)
		}
	})

	t.Run("resolves relative file paths against cwd", func(t *testing.T) {
		raw := []byte(`{
			"session_id": "session-1",
			"hook_event_name": "PostToolUse",
			"tool_name": "Edit",
			"cwd": "/home/user/project",
			"tool_input": {"file_path": "pkg/util.go"}
		}`)
		ev, err := guard.ParseHookEvent(raw)
		if err != nil {
			t.Fatalf("ParseHookEvent() error = %v", err)
		}
		if len(ev.Affected.Paths) != 1 || ev.Affected.Paths[0] != "/home/user/project/pkg/util.go" {
			t.Errorf("Paths = %v, want [/home/user/project/pkg/util.go]", ev.Affected.Paths)
		}
	})

	t.Run("notebook edits use notebook_path", func(t *testing.T) {
		raw := []byte(`{
			"session_id": "session-1",
			"hook_event_name": "PreToolUse",
			"tool_name": "NotebookEdit",
			"cwd": "/p",
			"tool_input": {"notebook_path": "/p/analysis.ipynb"}
		}`)
		ev, err := guard.ParseHookEvent(raw)
		if err != nil {
			t.Fatalf("ParseHookEvent() error = %v", err)
		}
		if len(ev.Affected.Paths) != 1 || ev.Affected.Paths[0] != "/p/analysis.ipynb" {
			t.Errorf("Paths = %v, want [/p/analysis.ipynb]", ev.Affected.Paths)
		}
	})

	t.Run("shell commands have unknown scope", func(t *testing.T) {
		raw := []byte(`{
			"session_id": "session-1",
			"hook_event_name": "PostToolUse",
			"tool_name": "Bash",
			"tool_input": {"command": "rm -rf build"}
		}`)
		ev, err := guard.ParseHookEvent(raw)
		if err != nil {
			t.Fatalf("ParseHookEvent() error = %v", err)
		}
		if ev.Affected.Scope != guard.ScopeUnknown {
			t.Errorf("Scope = %v, want ScopeUnknown", ev.Affected.Scope)
		}
	})

	t.Run("read-only tools cannot modify files", func(t *testing.T) {
		for _, tool := range []string{"Read", "Glob", "Grep", "LS", "WebFetch", "WebSearch"} {
			raw := []byte(`{
				"session_id": "session-1",
				"hook_event_name": "PreToolUse",
				"tool_name": "` + tool + `"
			}`)
			ev, err := guard.ParseHookEvent(raw)
			if err != nil {
				t.Fatalf("ParseHookEvent(%s) error = %v", tool, err)
			}
			if ev.Affected.Scope != guard.ScopeNone {
				t.Errorf("tool %s: Scope = %v, want ScopeNone", tool, ev.Affected.Scope)
			}
		}
	})

	t.Run("write event without a path degrades to unknown scope", func(t *testing.T) {
		raw := []byte(`{
			"session_id": "session-1",
			"hook_event_name": "PreToolUse",
			"tool_name": "Write",
			"tool_input": {}
		}`)
		ev, err := guard.ParseHookEvent(raw)
		if err != nil {
			t.Fatalf("ParseHookEvent() error = %v", err)
		}
		if ev.Affected.Scope != guard.ScopeUnknown {
			t.Errorf("Scope = %v, want ScopeUnknown", ev.Affected.Scope)
		}
	})

	t.Run("malformed JSON is not applicable", func(t *testing.T) {
		_, err := guard.ParseHookEvent([]byte(`{not json`))
		if !errors.Is(err, guard.ErrNotApplicable) {
			t.Errorf("error = %v, want ErrNotApplicable", err)
		}
	})

	t.Run("missing session is not applicable", func(t *testing.T) {
		_, err := guard.ParseHookEvent([]byte(`{"hook_event_name": "PreToolUse", "tool_name": "Write"}`))
		if !errors.Is(err, guard.ErrNotApplicable) {
			t.Errorf("error = %v, want ErrNotApplicable", err)
		}
	})

	t.Run("unrecognized phase is not applicable", func(t *testing.T) {
		_, err := guard.ParseHookEvent([]byte(`{"session_id": "s", "hook_event_name": "Notification"}`))
		if !errors.Is(err, guard.ErrNotApplicable) {
			t.Errorf("error = %v, want ErrNotApplicable", err)
		}
	})
}
