package scan

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the project-local ignore file, layered on top of
// the built-in exclusions.
const IgnoreFileName = ".ccguardignore"

// builtinExcludes are always applied, before any project rules:
// version-control internals, dependency and build output directories,
// editor and OS artifacts, and the guard's own data directory.
var builtinExcludes = []string{
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	"vendor/",
	"dist/",
	"build/",
	"target/",
	"out/",
	"__pycache__/",
	".venv/",
	"venv/",
	".idea/",
	".vscode/",
	".ccguard/",
	".DS_Store",
	"Thumbs.db",
	"*.swp",
	"*.swo",
	IgnoreFileName,
}

// ignoreRule is one parsed pattern. Rules are evaluated in order and
// the last matching rule wins, so negations ("!pattern") can resurrect
// paths excluded by an earlier rule.
type ignoreRule struct {
	segments []string // slash-split pattern; "**" crosses segments
	negate   bool
	dirOnly  bool // trailing "/" restricts the rule to directories
}

// IgnoreMatcher answers whether a path is excluded from scanning.
// Anything outside the root is always ignored.
type IgnoreMatcher struct {
	root  string
	rules []ignoreRule
}

// NewIgnoreMatcher builds a matcher for the given absolute root from
// the built-in exclusions followed by the raw patterns, in order.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(root string, rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{root: filepath.Clean(root)}
	for _, raw := range builtinExcludes {
		if rule, ok := parseRule(raw); ok {
			m.rules = append(m.rules, rule)
		}
	}
	for _, raw := range rawPatterns {
		if rule, ok := parseRule(raw); ok {
			m.rules = append(m.rules, rule)
		}
	}
	return m
}

// NewProjectIgnoreMatcher builds a matcher from the built-ins, the
// configured extra patterns, and the project's ignore file when one
// exists at the root.
func NewProjectIgnoreMatcher(root string, configPatterns []string) (*IgnoreMatcher, error) {
	filePatterns, err := ReadIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	patterns := make([]string, 0, len(configPatterns)+len(filePatterns))
	patterns = append(patterns, configPatterns...)
	patterns = append(patterns, filePatterns...)
	return NewIgnoreMatcher(root, patterns), nil
}

// ReadIgnoreFile reads raw pattern lines from an ignore file.
// A missing file yields no patterns and no error.
func ReadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}

// parseRule compiles one raw pattern line. Returns false for blank
// lines and comments.
func parseRule(raw string) (ignoreRule, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return ignoreRule{}, false
	}

	var rule ignoreRule
	if strings.HasPrefix(raw, "!") {
		rule.negate = true
		raw = raw[1:]
	}
	if strings.HasSuffix(raw, "/") {
		rule.dirOnly = true
		raw = strings.TrimSuffix(raw, "/")
	}

	anchored := strings.HasPrefix(raw, "/")
	raw = strings.TrimPrefix(raw, "/")
	if raw == "" {
		return ignoreRule{}, false
	}

	rule.segments = strings.Split(raw, "/")
	if !anchored {
		// A pattern without a leading "/" matches at any depth.
		rule.segments = append([]string{"**"}, rule.segments...)
	}
	return rule, true
}

// matches reports whether the rule matches the slash-separated
// root-relative path.
func (r ignoreRule) matches(rel string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	return matchSegments(r.segments, strings.Split(rel, "/"))
}

// matchSegments matches pattern segments against path segments.
// "*" and "?" match within one segment; "**" spans any number of
// segments, including none.
func matchSegments(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		if matchSegments(pattern[1:], parts) {
			return true
		}
		return len(parts) > 0 && matchSegments(pattern, parts[1:])
	}
	if len(parts) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], parts[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], parts[1:])
}

// IsIgnored reports whether the absolute path is excluded from
// scanning. A path outside the root is always ignored. A path under an
// ignored directory is ignored regardless of its own rules.
func (m *IgnoreMatcher) IsIgnored(absPath string, isDir bool) bool {
	rel, err := filepath.Rel(m.root, filepath.Clean(absPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	if rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)

	// An ignored ancestor directory excludes the whole subtree.
	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		if m.evaluate(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return m.evaluate(rel, isDir)
}

// evaluate applies the rules in order; the last match decides.
func (m *IgnoreMatcher) evaluate(rel string, isDir bool) bool {
	ignored := false
	for _, rule := range m.rules {
		if rule.matches(rel, isDir) {
			ignored = !rule.negate
		}
	}
	return ignored
}
