package testutil

import (
	"fmt"
	"sync"
	"time"

	"ccguard/internal/guard"
)

// StubScanner serves FileRecords from an in-memory file map, so
// snapshot logic can be tested without touching disk. Records use the
// default counting rule and a fixed modification time.
type StubScanner struct {
	mu    sync.Mutex
	root  string
	files map[string]string
	mtime time.Time

	// ScanErr, if set, is returned from ScanProject.
	ScanErr error
}

// NewStubScanner creates an empty scanner rooted at root.
func NewStubScanner(root string) *StubScanner {
	return &StubScanner{
		root:  root,
		files: make(map[string]string),
		mtime: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
}

// AddFile sets the content of path. Overwrites any previous content.
func (s *StubScanner) AddFile(path, content string) {
	s.mu.Lock()
	s.files[path] = content
	s.mu.Unlock()
}

// RemoveFile deletes path from the fake filesystem.
func (s *StubScanner) RemoveFile(path string) {
	s.mu.Lock()
	delete(s.files, path)
	s.mu.Unlock()
}

// Touch bumps the modification time used for subsequent records
// without changing any content.
func (s *StubScanner) Touch(d time.Duration) {
	s.mu.Lock()
	s.mtime = s.mtime.Add(d)
	s.mu.Unlock()
}

func (s *StubScanner) Root() string { return s.root }

func (s *StubScanner) ScanProject() (map[string]guard.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ScanErr != nil {
		return nil, s.ScanErr
	}
	records := make(map[string]guard.FileRecord, len(s.files))
	for path, content := range s.files {
		records[path] = s.record(path, content)
	}
	return records, nil
}

func (s *StubScanner) ScanFiles(paths []string) (map[string]guard.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make(map[string]guard.FileRecord, len(paths))
	for _, path := range paths {
		content, ok := s.files[path]
		if !ok {
			continue
		}
		records[path] = s.record(path, content)
	}
	return records, nil
}

func (s *StubScanner) record(path, content string) guard.FileRecord {
	return guard.FileRecord{
		Path:         path,
		LineCount:    guard.CountString(content, guard.DefaultCountingRule()),
		ContentHash:  SHA256Hex([]byte(content)),
		Mode:         0644,
		LastModified: s.mtime,
	}
}

// MustRecord returns the record for path, failing loudly when it does
// not exist.
func (s *StubScanner) MustRecord(path string) guard.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[path]
	if !ok {
		panic(fmt.Sprintf("no such file in stub scanner: %s", path))
	}
	return s.record(path, content)
}

var _ guard.Scanner = (*StubScanner)(nil)
