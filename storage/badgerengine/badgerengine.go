// Package badgerengine is the production storage.Engine, built on
// github.com/dgraph-io/badger/v4. It generalizes a single badger.DB
// wrapping one flat keyspace into a multi-tree transactional engine:
// trees are byte-string partitions of one badger keyspace (prefix+key,
// the same idea as common/partition.go), and GenerateID is backed by
// badger's own
// GetSequence, which is exactly the "monotonic id generation surviving
// restarts" capability the core's commit/branch_from paths depend on.
package badgerengine

import (
	"errors"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/lunfardo314/griddb/storage"
)

const (
	treeSep = "/"

	// maxConflictRetries bounds the retry loop for badger.ErrConflict.
	// The orchestrator's transaction bodies are idempotent by construction,
	// so retrying is always safe; the bound exists only to turn a
	// pathological livelock into a visible error instead of hanging
	// forever.
	maxConflictRetries = 100

	seqBandwidth = 100
)

// Engine wraps a *badger.DB as a storage.Engine.
type Engine struct {
	db  *badger.DB
	seq *badger.Sequence
}

var _ storage.Engine = (*Engine)(nil)

// Open creates dir if needed and opens (or creates) a badger database in it.
// Passing opts overrides badger.DefaultOptions(dir); the logger is always
// silenced.
func Open(dir string, opts ...badger.Options) (*Engine, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	o := badger.DefaultOptions(dir)
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Logger = nil
	db, err := badger.Open(o)
	if err != nil {
		return nil, err
	}
	return New(db)
}

// New wraps an already-open *badger.DB.
func New(db *badger.DB) (*Engine, error) {
	seq, err := db.GetSequence([]byte("\x00griddb-version-seq"), seqBandwidth)
	if err != nil {
		return nil, err
	}
	return &Engine{db: db, seq: seq}, nil
}

func treeKey(tree string, key []byte) []byte {
	out := make([]byte, 0, len(tree)+len(treeSep)+len(key))
	out = append(out, tree...)
	out = append(out, treeSep...)
	out = append(out, key...)
	return out
}

// Get is a non-transactional point read, used by GridDb.Read and by
// griddb.Open to load the metadata record, neither of which takes a
// transaction.
func (e *Engine) Get(tree string, key []byte) ([]byte, error) {
	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(treeKey(tree, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, err
}

// Update implements storage.Engine. badger transactions report
// badger.ErrConflict on an optimistic write-write conflict and leave
// retrying to the caller; this loop is that retry, making the conflict
// invisible to GridDb callers.
func (e *Engine) Update(_ []string, fn func(storage.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = e.db.Update(func(txn *badger.Txn) error {
			return fn(&badgerTx{txn: txn, engine: e})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (e *Engine) Iterate(tree string, fn func(key, value []byte) bool) error {
	prefix := treeKey(tree, nil)
	return e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)[len(prefix):]
			var value []byte
			if err := item.Value(func(val []byte) error {
				value = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return err
			}
			if !fn(key, value) {
				break
			}
		}
		return nil
	})
}

func (e *Engine) Close() error {
	if e.seq != nil {
		_ = e.seq.Release()
	}
	return e.db.Close()
}

type badgerTx struct {
	txn    *badger.Txn
	engine *Engine
}

var _ storage.Tx = (*badgerTx)(nil)

func (t *badgerTx) Get(tree string, key []byte) ([]byte, error) {
	item, err := t.txn.Get(treeKey(tree, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTx) Insert(tree string, key, value []byte) ([]byte, error) {
	prior, err := t.Get(tree, key)
	if err != nil {
		return nil, err
	}
	if err := t.txn.Set(treeKey(tree, key), value); err != nil {
		return nil, err
	}
	return prior, nil
}

func (t *badgerTx) Remove(tree string, key []byte) ([]byte, error) {
	prior, err := t.Get(tree, key)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return nil, nil
	}
	if err := t.txn.Delete(treeKey(tree, key)); err != nil {
		return nil, err
	}
	return prior, nil
}

// GenerateID starts at 1: badger's sequence starts at 0, and id 0 is
// reserved for the initial working version created before any GenerateID
// call is made.
func (t *badgerTx) GenerateID() (uint64, error) {
	v, err := t.engine.seq.Next()
	if err != nil {
		return 0, err
	}
	return v + 1, nil
}
