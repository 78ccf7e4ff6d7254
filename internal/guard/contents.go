package guard

import "io"

// ContentStore is a content-addressed byte store. The guard captures
// the raw bytes of files it is about to let an operation touch, so a
// rejected operation can be reverted byte-for-byte without depending
// on version control.
type ContentStore interface {
	// Put stores the bytes read from r under their SHA-256 checksum.
	// Storing the same checksum twice is a safe no-op.
	Put(checksum string, r io.Reader) error

	// Get writes the bytes stored under checksum to w. Missing content
	// is an error.
	Get(checksum string, w io.Writer) error

	// Has reports whether content with the given checksum is stored.
	Has(checksum string) (bool, error)
}
