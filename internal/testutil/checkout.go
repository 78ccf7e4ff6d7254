package testutil

import (
	"fmt"
	"os"

	"ccguard/internal/guard"
)

// StubCheckout is a fake version-control checkout. Tracked paths are
// registered explicitly with their committed content.
type StubCheckout struct {
	available bool
	tracked   map[string][]byte

	// TrackedErr, if set, is returned from IsTracked.
	TrackedErr error
	// RestoreErr, if set, is returned from RestoreTracked.
	RestoreErr error
}

// NewStubCheckout creates an available checkout with no tracked files.
func NewStubCheckout() *StubCheckout {
	return &StubCheckout{available: true, tracked: make(map[string][]byte)}
}

// NewUnavailableCheckout creates a checkout that reports no repository.
func NewUnavailableCheckout() *StubCheckout {
	return &StubCheckout{tracked: make(map[string][]byte)}
}

// Track registers path as tracked with the given committed content.
func (c *StubCheckout) Track(path string, content []byte) {
	c.tracked[path] = content
}

func (c *StubCheckout) Available() bool { return c.available }

func (c *StubCheckout) IsTracked(path string) (bool, error) {
	if c.TrackedErr != nil {
		return false, c.TrackedErr
	}
	_, ok := c.tracked[path]
	return ok, nil
}

func (c *StubCheckout) RestoreTracked(path string) error {
	if c.RestoreErr != nil {
		return c.RestoreErr
	}
	content, ok := c.tracked[path]
	if !ok {
		return fmt.Errorf("path not tracked: %s", path)
	}
	return os.WriteFile(path, content, 0644)
}

var _ guard.Checkout = (*StubCheckout)(nil)
