// Package storage defines the abstract key-value interface the DAG
// store is built on (spec.md §4.1/§6: "the core depends on an abstract
// key-value store with column families; the concrete engine is
// pluggable"). Grounded on the teacher's
// infrastructure/db/database.DataAccessor interface and its
// bucket-keyed usage in infrastructure/db/dbaccess/block.go.
package storage

import "errors"

// ErrNotFound is returned by Get when the requested key does not
// exist.
var ErrNotFound = errors.New("storage: key not found")

// Bucket namespaces keys within a logical column family (spec.md §6:
// blocks, metadata, children, tips, head, heights).
type Bucket []byte

// Key returns the fully-qualified key for name within this bucket.
func (b Bucket) Key(name []byte) []byte {
	key := make([]byte, 0, len(b)+1+len(name))
	key = append(key, b...)
	key = append(key, '/')
	key = append(key, name...)
	return key
}

// Engine is the abstract, pluggable key-value store the DAG store is
// built on. Implementations must support atomic multi-key writes via
// Batch so a commit's block/metadata/children/tips/head/heights update
// either lands entirely or not at all (spec.md §4.1 write-ahead
// commits, P8 storage atomicity).
type Engine interface {
	Get(key []byte) ([]byte, error) // returns ErrNotFound if absent
	Has(key []byte) (bool, error)
	NewBatch() Batch
	// NewIterator returns an iterator over all keys with the given
	// prefix, in ascending key order.
	NewIterator(prefix []byte) Iterator
	Close() error
}

// Batch accumulates a set of writes to be applied atomically.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Commit() error
}

// Iterator walks keys in ascending order within a prefix.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}
