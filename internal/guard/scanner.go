package guard

// Scanner produces FileRecords for the project tree. Implementations
// must apply the shared counting rule and must never fail a whole scan
// because one file is unreadable.
type Scanner interface {
	// Root returns the absolute project root the scanner operates on.
	Root() string

	// ScanProject walks the entire project and returns a record for
	// every tracked (non-ignored, non-binary) file.
	ScanProject() (map[string]FileRecord, error)

	// ScanFiles rescans only the given paths. Ignored paths and paths
	// that no longer exist are silently absent from the result; the
	// returned map is always a partial view, never an error.
	ScanFiles(paths []string) (map[string]FileRecord, error)
}
