package griddb

import (
	"bytes"
	"sort"

	"github.com/lunfardo314/griddb/change"
	"github.com/lunfardo314/griddb/storage"
)

// backupKeyCache is the process-memory sorted set of encoded keys
// currently present in the backup tree. A sorted slice with
// binary-search insert/lookup is used instead of a
// generic ordered-set type: nothing in the retrieved pack carries one
// lightweight enough for an in-memory set of a few thousand keys (the
// nearest candidate, a full persistent B-tree, is a disproportionate
// dependency for this).
type backupKeyCache struct {
	keys [][]byte // sorted ascending, unique
}

func newBackupKeyCache() *backupKeyCache {
	return &backupKeyCache{}
}

func (c *backupKeyCache) search(k []byte) (int, bool) {
	i := sort.Search(len(c.keys), func(i int) bool { return bytes.Compare(c.keys[i], k) >= 0 })
	if i < len(c.keys) && bytes.Equal(c.keys[i], k) {
		return i, true
	}
	return i, false
}

// Contains reports whether k is currently recorded in the cache.
func (c *backupKeyCache) Contains(k []byte) bool {
	_, ok := c.search(k)
	return ok
}

// Add records k if it is not already present.
func (c *backupKeyCache) Add(k []byte) {
	i, ok := c.search(k)
	if ok {
		return
	}
	own := append([]byte(nil), k...)
	c.keys = append(c.keys, nil)
	copy(c.keys[i+1:], c.keys[i:])
	c.keys[i] = own
}

// Keys returns the cached keys in ascending order. The caller must not
// retain or mutate the returned slice's backing array across a Reset.
func (c *backupKeyCache) Keys() [][]byte { return c.keys }

func (c *backupKeyCache) Len() int { return len(c.keys) }

// Reset empties the cache, used after a successful commit or branch.
func (c *backupKeyCache) Reset() { c.keys = nil }

func serializeChange(c change.Change) []byte {
	var buf bytes.Buffer
	buf.Grow(c.EncodedSize())
	if err := change.Serialize(&buf, c); err != nil {
		// change.Serialize only fails on a write error, and bytes.Buffer
		// never returns one.
		panic(err)
	}
	return buf.Bytes()
}

// insertBackupBatch writes each (key, change) pair verbatim into the
// backup tree. It does not touch the in-memory cache; the orchestrator
// updates the cache only once the enclosing transaction has committed.
func insertBackupBatch(tx storage.Tx, tree string, reverse EncodedChanges) error {
	for _, ec := range reverse {
		if _, err := tx.Insert(tree, ec.Key, serializeChange(ec.Change)); err != nil {
			return err
		}
	}
	return nil
}

// drainBackupIntoArchive removes every entry named by cache from the
// backup tree, deserializes it, and returns the accumulated delta in
// ascending key order. A cached key absent from the tree is I1 violated —
// a fatal corruption bug, not a recoverable error.
func drainBackupIntoArchive(tx storage.Tx, tree string, cache *backupKeyCache) (EncodedChanges, error) {
	out := make(EncodedChanges, 0, cache.Len())
	for _, k := range cache.Keys() {
		raw, err := tx.Remove(tree, k)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			panic(&ErrBackupCacheCorrupted{Key: append([]byte(nil), k...)})
		}
		c, err := change.Deserialize(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, EncodedChange{Key: k, Change: c})
	}
	return out, nil
}

// clearBackup removes every entry named by cache from the backup tree
// without archiving it, used when committing a working version that has
// no parent: the captured reverse changes would describe how to reach a
// nonexistent state.
func clearBackup(tx storage.Tx, tree string, cache *backupKeyCache) error {
	for _, k := range cache.Keys() {
		if _, err := tx.Remove(tree, k); err != nil {
			return err
		}
	}
	return nil
}
