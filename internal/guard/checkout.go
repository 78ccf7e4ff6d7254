package guard

// Checkout is the version-control primitive the revert engine falls
// back to when the content store has no bytes for a path. It restores
// a tracked path to its last committed content.
type Checkout interface {
	// Available reports whether the project root is under version
	// control at all.
	Available() bool

	// IsTracked reports whether the path is tracked by version control.
	IsTracked(path string) (bool, error)

	// RestoreTracked overwrites the working-tree path with the tracked
	// revision's content. Fails when the path is not tracked or the
	// checkout cannot be performed.
	RestoreTracked(path string) error
}
