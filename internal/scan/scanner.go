package scan

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ccguard/internal/guard"
)

// binaryExtensions files are skipped without reading their content.
// This is an extension heuristic, not content sniffing: binary content
// behind an unlisted extension is an accepted miss.
var binaryExtensions = map[string]bool{
	// images
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".tiff": true, ".svgz": true,
	// archives
	".zip": true, ".tar": true, ".gz": true, ".tgz": true, ".bz2": true,
	".xz": true, ".7z": true, ".rar": true, ".jar": true,
	// executables and objects
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".o": true, ".a": true, ".class": true, ".pyc": true, ".pyo": true,
	".wasm": true,
	// fonts
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true, ".eot": true,
	// databases and documents
	".db": true, ".sqlite": true, ".sqlite3": true, ".pdf": true,
	// media
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wav": true,
	".flac": true, ".mkv": true, ".ogg": true,
}

// minifiedSuffixes are generated assets whose line counts are noise.
var minifiedSuffixes = []string{".min.js", ".min.css", ".bundle.js"}

// ProjectScanner walks the project tree and produces FileRecords using
// the shared counting rule. One bad file never fails a scan: unreadable
// and vanished files are skipped.
type ProjectScanner struct {
	root    string
	matcher *IgnoreMatcher
	rule    guard.CountingRule
	logger  guard.Logger
}

// NewProjectScanner creates a scanner rooted at the given directory.
func NewProjectScanner(root string, matcher *IgnoreMatcher, rule guard.CountingRule, logger guard.Logger) (*ProjectScanner, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root is not a directory: %s", absRoot)
	}
	return &ProjectScanner{
		root:    absRoot,
		matcher: matcher,
		rule:    rule,
		logger:  logger,
	}, nil
}

// Root returns the absolute project root.
func (s *ProjectScanner) Root() string { return s.root }

// ScanProject walks the whole tree, pruning ignored directories rather
// than filtering after the fact.
func (s *ProjectScanner) ScanProject() (map[string]guard.FileRecord, error) {
	records := make(map[string]guard.FileRecord)

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entry: skip it, never fail the scan.
			s.logger.Debug("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != s.root && s.matcher.IsIgnored(path, true) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if s.matcher.IsIgnored(path, false) || isBinaryPath(path) {
			return nil
		}
		rec, err := s.scanOne(path)
		if err != nil {
			s.logger.Debug("skipping unreadable file", "path", path, "error", err)
			return nil
		}
		records[rec.Path] = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking project: %w", err)
	}
	return records, nil
}

// ScanFiles rescans only the given paths. Ignored, binary, vanished,
// and unreadable paths are silently absent from the result; the call
// itself never fails.
func (s *ProjectScanner) ScanFiles(paths []string) (map[string]guard.FileRecord, error) {
	records := make(map[string]guard.FileRecord, len(paths))
	for _, raw := range paths {
		path, err := filepath.Abs(raw)
		if err != nil {
			continue
		}
		path = filepath.Clean(path)
		if s.matcher.IsIgnored(path, false) || isBinaryPath(path) {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		rec, err := s.scanOne(path)
		if err != nil {
			s.logger.Debug("skipping unreadable file", "path", path, "error", err)
			continue
		}
		records[rec.Path] = rec
	}
	return records, nil
}

// scanOne reads a file once and derives its record: line count under
// the shared rule, content hash, permission bits, and modification
// time.
func (s *ProjectScanner) scanOne(path string) (guard.FileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return guard.FileRecord{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return guard.FileRecord{}, err
	}

	sum := sha256.Sum256(data)
	lines, err := guard.CountLines(bytes.NewReader(data), s.rule)
	if err != nil {
		return guard.FileRecord{}, err
	}

	return guard.FileRecord{
		Path:         path,
		LineCount:    lines,
		ContentHash:  hex.EncodeToString(sum[:]),
		Mode:         info.Mode().Perm(),
		LastModified: info.ModTime(),
	}, nil
}

// isBinaryPath applies the extension denylist.
func isBinaryPath(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range minifiedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return binaryExtensions[filepath.Ext(lower)]
}

// Compile-time check that ProjectScanner implements guard.Scanner.
var _ guard.Scanner = (*ProjectScanner)(nil)
