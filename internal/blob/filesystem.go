package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ccguard/internal/guard"
)

// FileSystemStore is a filesystem-backed content-addressed store.
// Content files are named by their SHA-256 checksum and sharded by the
// first two hex characters to keep directories small:
//
//	<root>/
//	  ab/
//	    abcdef...    (content file)
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a content store rooted at the given path.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating content store root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

// contentPath returns the sharded path for a checksum.
func (s *FileSystemStore) contentPath(checksum string) string {
	shard := checksum
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(s.root, shard, checksum)
}

// Put stores the bytes read from r under checksum. Storing an existing
// checksum is a no-op (content is immutable by construction); the
// reader is drained so callers can close it uniformly.
func (s *FileSystemStore) Put(checksum string, r io.Reader) error {
	destPath := s.contentPath(checksum)

	if _, err := os.Stat(destPath); err == nil {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return fmt.Errorf("draining content: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating shard directory: %w", err)
	}

	// Write via a temp file and rename so a crashed write never leaves
	// a truncated blob under its final name.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+checksum+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalizing content: %w", err)
	}
	return nil
}

// Get writes the stored bytes for checksum to w.
func (s *FileSystemStore) Get(checksum string, w io.Writer) error {
	f, err := os.Open(s.contentPath(checksum))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("content not found: %s", checksum)
		}
		return fmt.Errorf("opening content: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("reading content: %w", err)
	}
	return nil
}

// Has reports whether content with the given checksum is stored.
func (s *FileSystemStore) Has(checksum string) (bool, error) {
	_, err := os.Stat(s.contentPath(checksum))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat content: %w", err)
}

// Compile-time check that FileSystemStore implements guard.ContentStore.
var _ guard.ContentStore = (*FileSystemStore)(nil)
