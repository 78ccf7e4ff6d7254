package guard

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// RevertEngine restores working-tree paths to the state recorded in a
// target snapshot. Restore sources, in order: the content store (byte
// exact), a version-control checkout for tracked paths, and finally
// deletion for paths with no authoritative prior content.
type RevertEngine struct {
	contents ContentStore
	checkout Checkout
	logger   Logger
}

// NewRevertEngine creates a RevertEngine.
func NewRevertEngine(contents ContentStore, checkout Checkout, logger Logger) *RevertEngine {
	return &RevertEngine{contents: contents, checkout: checkout, logger: logger}
}

// revertBackup holds the pre-revert bytes of every affected path so a
// failed revert can be rolled back. It lives only for the duration of
// one RevertToSnapshot call.
type revertBackup struct {
	existed map[string]bool
	content map[string][]byte
	mode    map[string]os.FileMode
}

// RevertToSnapshot restores every affected path to the state in target.
// Paths with no record in target did not exist then and are deleted.
// The operation is atomic from the caller's perspective: on any
// failure, every path is rolled back to the state the attempt found it
// in and the error is returned.
func (e *RevertEngine) RevertToSnapshot(affectedPaths []string, target *ProjectSnapshot) error {
	backup, err := e.backupPaths(affectedPaths)
	if err != nil {
		return fmt.Errorf("backing up before revert: %w", err)
	}

	for _, path := range affectedPaths {
		if err := e.revertOnePath(path, target); err != nil {
			e.logger.Error("revert failed, rolling back", "path", path, "error", err)
			if rbErr := e.rollback(affectedPaths, backup); rbErr != nil {
				return fmt.Errorf("reverting %s: %w (rollback also failed: %v)", path, err, rbErr)
			}
			return fmt.Errorf("reverting %s: %w", path, err)
		}
	}

	e.logger.Info("revert complete", "paths", len(affectedPaths))
	return nil
}

// backupPaths reads the current bytes of every path so the revert
// itself can be undone. Missing paths are recorded as absent.
func (e *RevertEngine) backupPaths(paths []string) (*revertBackup, error) {
	b := &revertBackup{
		existed: make(map[string]bool, len(paths)),
		content: make(map[string][]byte, len(paths)),
		mode:    make(map[string]os.FileMode, len(paths)),
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			b.existed[path] = false
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		b.existed[path] = true
		b.content[path] = data
		b.mode[path] = info.Mode().Perm()
	}
	return b, nil
}

// revertOnePath restores a single path to its state in target.
func (e *RevertEngine) revertOnePath(path string, target *ProjectSnapshot) error {
	rec, existed := target.Files[path]
	if !existed {
		// The file did not exist at the target point in time.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing created file: %w", err)
		}
		return nil
	}

	// Byte-exact restore from the content store when we captured the
	// pre-operation bytes.
	has, err := e.contents.Has(rec.ContentHash)
	if err == nil && has {
		return e.restoreFromContents(path, rec)
	}

	// Otherwise fall back to version control for tracked paths.
	if e.checkout != nil && e.checkout.Available() {
		tracked, err := e.checkout.IsTracked(path)
		if err != nil {
			return fmt.Errorf("checking version control: %w", err)
		}
		if tracked {
			if err := e.checkout.RestoreTracked(path); err != nil {
				return fmt.Errorf("version-control checkout: %w", err)
			}
			return nil
		}
	}

	// The file existed before the operation but there is no
	// authoritative prior content anywhere: it was never tracked and
	// never captured. Deleting undoes at least the creation.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing untracked file: %w", err)
	}
	return nil
}

// restoreFromContents writes the stored bytes for rec to path with the
// permission bits the record captured at scan time, so reverting a
// deleted or chmodded script does not strip its exec bit.
func (e *RevertEngine) restoreFromContents(path string, rec FileRecord) error {
	var buf bytes.Buffer
	if err := e.contents.Get(rec.ContentHash, &buf); err != nil {
		return fmt.Errorf("fetching stored content: %w", err)
	}
	mode := rec.Mode
	if mode == 0 {
		// Records persisted before modes were captured.
		mode = 0644
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), mode); err != nil {
		return fmt.Errorf("writing restored content: %w", err)
	}
	// WriteFile only applies the mode on create; an existing file keeps
	// whatever bits it had.
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("restoring file mode: %w", err)
	}
	return nil
}

// rollback puts every path back to the state captured in backup.
func (e *RevertEngine) rollback(paths []string, backup *revertBackup) error {
	var firstErr error
	for _, path := range paths {
		if !backup.existed[path] {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
				firstErr = fmt.Errorf("removing %s: %w", path, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("creating parent for %s: %w", path, err)
			}
			continue
		}
		if err := os.WriteFile(path, backup.content[path], backup.mode[path]); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("restoring %s: %w", path, err)
		}
	}
	return firstErr
}
