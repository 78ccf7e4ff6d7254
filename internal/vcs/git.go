package vcs

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"ccguard/internal/guard"
)

// GitCheckout implements guard.Checkout by shelling out to git.
// It restores tracked files to their committed content via
// `git checkout -- <path>`.
type GitCheckout struct {
	root string
}

// NewGitCheckout creates a checkout rooted at the project directory.
func NewGitCheckout(root string) *GitCheckout {
	return &GitCheckout{root: root}
}

// Available reports whether the root is inside a git work tree and the
// git binary can be found.
func (g *GitCheckout) Available() bool {
	if _, err := exec.LookPath("git"); err != nil {
		return false
	}
	out, err := g.run("rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// IsTracked reports whether the path is tracked by git.
func (g *GitCheckout) IsTracked(path string) (bool, error) {
	_, err := g.run("ls-files", "--error-unmatch", "--", path)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// ls-files exits non-zero for untracked paths.
		return false, nil
	}
	return false, fmt.Errorf("git ls-files: %w", err)
}

// RestoreTracked overwrites the working-tree path with the content of
// the tracked revision.
func (g *GitCheckout) RestoreTracked(path string) error {
	if _, err := g.run("checkout", "--", path); err != nil {
		return fmt.Errorf("git checkout %s: %w", path, err)
	}
	return nil
}

// run executes git with the given arguments in the project root.
func (g *GitCheckout) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.root
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

var _ guard.Checkout = (*GitCheckout)(nil)
