// Package memengine is an in-memory storage.Engine used by the grid db
// core's tests. It is built on common.InMemoryKVStore and common.Mutations:
// every tree is a byte-string partition of one shared map
// (common.MakeReaderPartition / common.MakeWriterPartition /
// common.MakeTraversableReaderPartition), and a transaction buffers its
// writes in a common.Mutations batch that is only applied to the store
// once fn returns without error, so an aborted update rolls back cleanly.
package memengine

import (
	"bytes"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/lunfardo314/griddb/common"
	"github.com/lunfardo314/griddb/storage"
)

const treeSep = "/"

// Engine is a single-process, non-persistent storage.Engine. It never
// raises an optimistic conflict (all updates serialize on one mutex), so
// Update's retry path is exercised only against the badger engine; the
// memory engine exists for fast, deterministic unit tests of the core's
// logic, not for concurrency testing.
type Engine struct {
	mu      sync.Mutex
	store   *common.InMemoryKVStore
	closed  bool
	nextSeq uint64
}

var _ storage.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{store: common.NewInMemoryKVStore()}
}

func treePrefix(tree string) []byte {
	return []byte(tree + treeSep)
}

func (e *Engine) Get(tree string, key []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, storage.ErrClosed
	}

	p := common.MakeReaderPartition(e.store, treePrefix(tree))
	defer p.Dispose()
	return p.Get(key), nil
}

func (e *Engine) Update(trees []string, fn func(storage.Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return storage.ErrClosed
	}

	tx := &memTx{
		engine: e,
		trees:  trees,
		batch:  common.NewMutations(),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.batch.Write(e.store)
	return nil
}

func (e *Engine) Iterate(tree string, fn func(key, value []byte) bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return storage.ErrClosed
	}

	prefix := treePrefix(tree)
	p := common.MakeTraversableReaderPartition(e.store, prefix)
	defer p.Dispose()

	type kv struct{ k, v []byte }
	var all []kv
	p.Iterator(nil).Iterate(func(k, v []byte) bool {
		key := make([]byte, len(k)-len(prefix))
		copy(key, k[len(prefix):])
		all = append(all, kv{key, v})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return bytes.Compare(all[i].k, all[j].k) < 0 })
	for _, p := range all {
		if !fn(p.k, p.v) {
			break
		}
	}
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type memTx struct {
	engine *Engine
	trees  []string
	batch  *common.Mutations
}

func (tx *memTx) storeKey(tree string, key []byte) []byte {
	return common.Concat(treePrefix(tree), key)
}

func (tx *memTx) Get(tree string, key []byte) ([]byte, error) {
	storeKey := tx.storeKey(tree, key)
	if v, touched := tx.batch.Get(storeKey); touched {
		return v, nil
	}
	p := common.MakeReaderPartition(tx.engine.store, treePrefix(tree))
	defer p.Dispose()
	return p.Get(key), nil
}

func (tx *memTx) set(tree string, key, value []byte) {
	p := common.MakeWriterPartition(tx.batch, treePrefix(tree))
	defer p.Dispose()
	p.Set(key, value)
}

func (tx *memTx) Insert(tree string, key, value []byte) ([]byte, error) {
	prior, err := tx.Get(tree, key)
	if err != nil {
		return nil, err
	}
	tx.set(tree, key, value)
	return prior, nil
}

func (tx *memTx) Remove(tree string, key []byte) ([]byte, error) {
	prior, err := tx.Get(tree, key)
	if err != nil {
		return nil, err
	}
	tx.set(tree, key, nil)
	return prior, nil
}

// GenerateID starts at 1: id 0 is reserved for the initial working
// version created before any GenerateID call is ever made, so the
// sequence must never hand that value out again.
func (tx *memTx) GenerateID() (uint64, error) {
	return atomic.AddUint64(&tx.engine.nextSeq, 1), nil
}
