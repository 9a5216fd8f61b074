// Package storage maps logical save names to bytes on durable media. A
// Backend is stateless: every call performs its own I/O and nothing is
// cached between calls, so changes made outside the process are visible on
// the next call.
package storage

import "context"

// Backend stores named byte blobs.
type Backend interface {
	// Exists reports whether an entry is stored under name.
	Exists(ctx context.Context, name string) (bool, error)
	// Read returns the bytes stored under name, or ErrNotFound.
	Read(ctx context.Context, name string) ([]byte, error)
	// Write creates or fully replaces the entry under name. A failed Write
	// leaves any previous entry intact.
	Write(ctx context.Context, name string, data []byte) error
	// Delete removes the entry under name. Missing names are ignored.
	Delete(ctx context.Context, name string) error
	// ResolvePath returns the backend-specific location of name. It
	// performs no I/O.
	ResolvePath(name string) string
}

// Lister is implemented by backends that can enumerate their entries.
type Lister interface {
	// List returns all stored names in lexical order.
	List(ctx context.Context) ([]string, error)
}
