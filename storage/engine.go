// Package storage defines the abstract transactional ordered key-value
// engine that the grid db core is built on. The core never
// talks to a concrete backend directly; it only ever sees an Engine.
//
// Two implementations live in sibling packages: storage/badgerengine (the
// production engine over github.com/dgraph-io/badger/v4) and
// storage/memengine (an in-memory engine for tests).
package storage

import "errors"

// ErrClosed is returned by storage/memengine's Get, Update and Iterate when
// called after Close. storage/badgerengine does not return it: after Close
// its methods return badger's own error.
var ErrClosed = errors.New("storage: engine is closed")

// Tx is the transactional scope handed to the function passed to
// Engine.Update. It spans every tree named in that call; reads and writes
// against trees not named there are not guaranteed to be consistent.
type Tx interface {
	// Get retrieves the current value for key in the named tree, or nil if
	// key is absent.
	Get(tree string, key []byte) ([]byte, error)

	// Insert sets key to value in the named tree and returns the value that
	// was there before (nil if key was absent).
	Insert(tree string, key, value []byte) ([]byte, error)

	// Remove deletes key from the named tree and returns the value that was
	// there before (nil if key was already absent).
	Remove(tree string, key []byte) ([]byte, error)

	// GenerateID returns the next value of the engine's monotonic id
	// sequence. Ids survive restarts and are never reused or repeated,
	// though a crash may cause some ids to be skipped.
	GenerateID() (uint64, error)
}

// Engine is the storage backend required by the grid db core: named ordered
// trees, atomic multi-tree transactions with automatic retry on optimistic
// conflict, monotonic id generation, and non-transactional full-tree
// iteration in key order.
type Engine interface {
	// Get is a non-transactional point read of the latest committed value
	// for key in tree, or nil if absent. Used by GridDb.Read and by
	// griddb.Open to load the metadata record, neither of which takes a
	// transaction.
	Get(tree string, key []byte) ([]byte, error)

	// Update runs fn inside a single transaction spanning all of trees.
	// fn may be invoked more than once if the engine detects an optimistic
	// write-write conflict and retries; fn must therefore be idempotent. A
	// non-conflict error returned by fn aborts the transaction (rolling
	// back every write it made) and is returned from Update unchanged.
	Update(trees []string, fn func(Tx) error) error

	// Iterate performs a full scan of tree in ascending key order, outside
	// of any transaction. Used once at open, on the backup tree, to rebuild
	// the in-memory BackupKeyCache.
	Iterate(tree string, fn func(key, value []byte) bool) error

	// Close releases all resources held by the engine.
	Close() error
}
