package guard

// FileDelta is the per-file line-count change between two snapshots.
type FileDelta struct {
	Before int `json:"before"`
	After  int `json:"after"`
	Delta  int `json:"delta"`
}

// SnapshotDiff is the result of comparing two snapshots. The added,
// removed, and modified sets are pairwise disjoint; every path in
// PerFileDelta appears in exactly one of them.
type SnapshotDiff struct {
	AddedPaths    []string
	RemovedPaths  []string
	ModifiedPaths []string
	TotalDelta    int
	PerFileDelta  map[string]FileDelta
}

// ChangedPaths returns every path that appears in the diff.
func (d *SnapshotDiff) ChangedPaths() []string {
	paths := make([]string, 0, len(d.PerFileDelta))
	paths = append(paths, d.AddedPaths...)
	paths = append(paths, d.RemovedPaths...)
	paths = append(paths, d.ModifiedPaths...)
	return paths
}

// Empty reports whether the diff contains no changes.
func (d *SnapshotDiff) Empty() bool {
	return len(d.PerFileDelta) == 0
}

// CompareSnapshots computes the change set between two snapshots. It is
// a pure function: neither input is mutated, and the result does not
// depend on map iteration order beyond slice ordering.
//
// A file whose content hash is unchanged is never reported, even when
// its modification time moved (touch without edit is a no-op). The
// total delta is computed from the aggregate totals, independently of
// the per-file deltas.
func CompareSnapshots(before, after *ProjectSnapshot) *SnapshotDiff {
	diff := &SnapshotDiff{
		PerFileDelta: make(map[string]FileDelta),
	}

	for path, b := range before.Files {
		a, ok := after.Files[path]
		if !ok {
			diff.RemovedPaths = append(diff.RemovedPaths, path)
			diff.PerFileDelta[path] = FileDelta{Before: b.LineCount, After: 0, Delta: -b.LineCount}
			continue
		}
		if a.ContentHash == b.ContentHash {
			continue
		}
		diff.ModifiedPaths = append(diff.ModifiedPaths, path)
		diff.PerFileDelta[path] = FileDelta{Before: b.LineCount, After: a.LineCount, Delta: a.LineCount - b.LineCount}
	}

	for path, a := range after.Files {
		if _, ok := before.Files[path]; ok {
			continue
		}
		diff.AddedPaths = append(diff.AddedPaths, path)
		diff.PerFileDelta[path] = FileDelta{Before: 0, After: a.LineCount, Delta: a.LineCount}
	}

	diff.TotalDelta = after.TotalLineCount - before.TotalLineCount
	return diff
}
