package guard

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	previewMaxFiles        = 3
	previewMaxLinesPerFile = 20
)

// summarizeDiff renders the added/removed/modified counts with the
// largest per-file contributions, for inclusion in decision reasons.
func summarizeDiff(diff *SnapshotDiff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "files: %d added, %d removed, %d modified",
		len(diff.AddedPaths), len(diff.RemovedPaths), len(diff.ModifiedPaths))

	type contribution struct {
		path  string
		delta int
	}
	contribs := make([]contribution, 0, len(diff.PerFileDelta))
	for path, d := range diff.PerFileDelta {
		contribs = append(contribs, contribution{path, d.Delta})
	}
	sort.Slice(contribs, func(i, j int) bool {
		if abs(contribs[i].delta) != abs(contribs[j].delta) {
			return abs(contribs[i].delta) > abs(contribs[j].delta)
		}
		return contribs[i].path < contribs[j].path
	})
	for i, c := range contribs {
		if i == previewMaxFiles {
			fmt.Fprintf(&b, "\n  ... and %d more", len(contribs)-i)
			break
		}
		fmt.Fprintf(&b, "\n  %+d  %s", c.delta, c.path)
	}
	return b.String()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// blockReason explains a hard-limit rejection with the concrete
// numbers and what the user can do about it.
func blockReason(check ThresholdCheck, diff *SnapshotDiff, allowance int, preview string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Line-count threshold exceeded: +%d lines over a budget of %d (exceeded by %d).\n",
		check.Delta, allowance, check.Delta-allowance)
	fmt.Fprintf(&b, "Project total went from %d to %d lines.\n", check.Baseline, check.Current)
	b.WriteString(summarizeDiff(diff))
	b.WriteString("\nThe change has been reverted.")
	b.WriteString("\nSuggestions: split the change into smaller steps, remove unused code first, or raise the budget and re-run.")
	if preview != "" {
		b.WriteString("\n\nRejected change:\n")
		b.WriteString(preview)
	}
	return b.String()
}

// revertFailureReason explains that the threshold was exceeded but the
// revert could not be completed. The working tree was rolled back to
// the state the failed attempt found it in.
func revertFailureReason(check ThresholdCheck, err error) string {
	return fmt.Sprintf(
		"Line-count threshold exceeded (+%d lines, current total %d, reference %d), but the automatic revert failed: %v.\n"+
			"The working tree was left exactly as the operation produced it. Revert manually before continuing.",
		check.Delta, check.Current, check.Baseline, err)
}

// warnReason explains a soft-limit overage that was approved anyway.
func warnReason(check ThresholdCheck, diff *SnapshotDiff, allowance int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Warning: line-count threshold exceeded: +%d lines over a budget of %d (soft limit, change kept).\n",
		check.Delta, allowance)
	fmt.Fprintf(&b, "Project total went from %d to %d lines.\n", check.Baseline, check.Current)
	b.WriteString(summarizeDiff(diff))
	return b.String()
}

// approveReason reports the accepted delta and the running total.
func approveReason(check ThresholdCheck, diff *SnapshotDiff, allowance int) string {
	if diff.Empty() {
		return fmt.Sprintf("No tracked changes. Project total: %d lines.", check.Current)
	}
	return fmt.Sprintf("Change within budget: %+d lines (allowed +%d). Project total: %d lines.\n%s",
		check.Delta, allowance, check.Current, summarizeDiff(diff))
}

// diffPreview renders unified diffs for the most-changed modified
// files, using the content store for the before bytes and the working
// tree for the after bytes. It must run before the revert, while the
// after bytes are still on disk. Files whose before content was never
// captured are skipped.
func diffPreview(diff *SnapshotDiff, before *ProjectSnapshot, contents ContentStore) string {
	paths := append([]string(nil), diff.ModifiedPaths...)
	sort.Strings(paths)

	var b strings.Builder
	rendered := 0
	for _, path := range paths {
		if rendered == previewMaxFiles {
			break
		}
		rec, ok := before.Files[path]
		if !ok {
			continue
		}
		has, err := contents.Has(rec.ContentHash)
		if err != nil || !has {
			continue
		}
		var beforeBuf bytes.Buffer
		if err := contents.Get(rec.ContentHash, &beforeBuf); err != nil {
			continue
		}
		afterBytes, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(beforeBuf.String()),
			B:        difflib.SplitLines(string(afterBytes)),
			FromFile: path + " (before)",
			ToFile:   path + " (after)",
			Context:  2,
		})
		if err != nil || text == "" {
			continue
		}
		b.WriteString(truncateLines(text, previewMaxLinesPerFile))
		rendered++
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncateLines keeps at most n lines of s.
func truncateLines(s string, n int) string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "") + "...\n"
}
