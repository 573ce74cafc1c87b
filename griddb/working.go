package griddb

import (
	"bytes"

	"github.com/lunfardo314/griddb/change"
	"github.com/lunfardo314/griddb/storage"
)

// applyWorkingTree applies changes to the working tree in order, returning
// the reverse changes needed to restore whatever was there before. A
// reverse change is recorded for a key only if that key is not already in
// cache — the rule that keeps the backup tree holding the oldest
// pre-working value of each key rather than the most recent intermediate
// one.
func applyWorkingTree(tx storage.Tx, tree string, cache *backupKeyCache, changes EncodedChanges) (EncodedChanges, error) {
	reverse := make(EncodedChanges, 0, len(changes))
	for _, ec := range changes {
		var prior []byte
		var err error
		if _, isInsert := ec.Change.Value(); isInsert {
			prior, err = tx.Insert(tree, ec.Key, serializeChange(ec.Change))
		} else {
			prior, err = tx.Remove(tree, ec.Key)
		}
		if err != nil {
			return nil, err
		}

		if cache.Contains(ec.Key) {
			continue
		}

		var rc change.Change
		if prior != nil {
			rc, err = change.Deserialize(bytes.NewReader(prior))
			if err != nil {
				return nil, err
			}
		} else {
			rc = change.Remove
		}
		reverse = append(reverse, EncodedChange{Key: ec.Key, Change: rc})
	}
	return reverse, nil
}

// readWorkingTree is a point lookup against the working tree. The working
// tree only ever stores Change::Insert payloads; a nil raw value means the
// key has no stored value at all.
func readWorkingTree(engine storage.Engine, tree string, key []byte) (*change.Change, error) {
	raw, err := engine.Get(tree, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	c, err := change.Deserialize(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return &c, nil
}
