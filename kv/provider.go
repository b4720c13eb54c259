// Package kv abstracts the byte-keyed, byte-valued key-value stores
// the tree persists into. Any engine satisfying Provider suffices; the
// tree never depends on a concrete backend.
package kv

// Provider is a single logical namespace (headers, blocks, or meta)
// backed by a concrete key-value engine.
type Provider interface {
	// Get retrieves a value by key. A missing key returns (nil, nil),
	// not an error.
	Get(key []byte) ([]byte, error)

	// Put stores a key-value pair.
	Put(key, value []byte) error

	// Delete removes a key-value pair. Deleting a missing key is not
	// an error.
	Delete(key []byte) error

	// Has checks if a key exists.
	Has(key []byte) (bool, error)

	// Batch returns a new batch for atomic multi-key writes.
	Batch() Batch

	// Close releases the underlying engine's resources.
	Close() error
}

// Batch provides atomic batch operations.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Write() error
	Reset()
}
