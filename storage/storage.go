// Package storage provides pluggable backend interfaces for cache artifact
// persistence.
//
// The source cache stores two kinds of blobs per ontology source: the
// serialized graph artifact and a small metadata record. Both go through the
// Store interface so that cache logic stays independent of the physical
// medium and remains testable against an in-memory or temp-dir backend.
package storage

import "context"

// Store is the pluggable backend interface for blob storage operations.
//
// Keys are hierarchical paths using "/" separators, partitioned by source
// identifier ("go/graph.nt.gz", "go/meta.yaml"), so concurrent runs against
// different sources never contend on the same keys.
//
// All Store implementations must be safe for concurrent use from multiple
// goroutines.
type Store interface {
	// Put stores binary data at the specified key, overwriting any
	// existing value.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves binary data for the specified key.
	// Returns an error wrapping fs.ErrNotExist if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether the key holds a value.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the value at key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
