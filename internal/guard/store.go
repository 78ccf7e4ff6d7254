package guard

// StateStore is the durable keyed persistence crossing process
// invocations. Every hook invocation is a fresh process; all "global"
// guard state lives here, never in package-level variables.
type StateStore interface {
	// Get unmarshals the JSON value stored under key into out and
	// reports whether the key existed.
	Get(key string, out any) (bool, error)

	// Set stores value under key, JSON-serialized. Existing values are
	// overwritten (last write wins; drift is healed on the read path).
	Set(key string, value any) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error

	// GetSession returns the persisted session state, or nil when the
	// session has never been seen.
	GetSession(sessionID string) (*SessionState, error)

	// PutSession creates or replaces the persisted session state.
	PutSession(state *SessionState) error

	// Enabled reports whether enforcement is switched on. A store with
	// no recorded preference defaults to enabled.
	Enabled() (bool, error)

	// SetEnabled records the enforcement switch.
	SetEnabled(enabled bool) error

	// RecordDecision increments the session's approved or blocked
	// counter.
	RecordDecision(sessionID string, approved bool) error

	// Close releases the underlying storage.
	Close() error
}

// Keys under which snapshots are persisted, per session.
const (
	KeyBaselineSnapshot  = "snapshot/baseline/"  // + sessionID
	KeyLastValidSnapshot = "snapshot/lastvalid/" // + sessionID
	KeyPreOpSnapshot     = "snapshot/preop/"     // + sessionID
)
