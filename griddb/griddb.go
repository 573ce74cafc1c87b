// Package griddb is the public surface of the versioned, spatially keyed
// key-value store: GridDb sequences the three-tree transactional protocol
// (working tree, backup tree, version graph/change archive pair) described
// by the orchestrator component over an abstract storage.Engine.
package griddb

import (
	"bytes"
	"sort"

	"github.com/lunfardo314/griddb/change"
	"github.com/lunfardo314/griddb/storage"
)

const metaKey = "meta"

// GridDb is a single named versioned store backed by five trees in one
// storage.Engine. It is single-writer: callers must not
// invoke Write, Commit, or BranchFrom concurrently from more than one
// goroutine. Read and CachedMeta take no transaction and may be called
// freely, but only ever observe committed state consistently when not
// racing a writer.
type GridDb struct {
	engine storage.Engine

	metaTree           string
	workingTree        string
	backupTree         string
	versionChangesTree string
	versionGraphTree   string

	cache *backupKeyCache
	meta  GridDbMetadata
}

func treeNames(name string) (meta, working, backup, versionChanges, versionGraph string) {
	return name + "-meta", name + "-working", name + "-backup", name + "-version-changes", name + "-version-graph"
}

// Open opens (creating on first use) the named grid db on engine: all five
// trees, the cached metadata record, and a BackupKeyCache rebuilt by a full
// scan of the backup tree. The full scan is a workaround for an engine
// that does not support transactional iteration; an engine that did
// would make the cache unnecessary.
func Open(engine storage.Engine, name string) (*GridDb, error) {
	metaTree, workingTree, backupTree, versionChangesTree, versionGraphTree := treeNames(name)
	db := &GridDb{
		engine:             engine,
		metaTree:           metaTree,
		workingTree:        workingTree,
		backupTree:         backupTree,
		versionChangesTree: versionChangesTree,
		versionGraphTree:   versionGraphTree,
		cache:              newBackupKeyCache(),
	}

	raw, err := engine.Get(metaTree, []byte(metaKey))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		db.meta = GridDbMetadata{WorkingVersion: 0}
		if err := engine.Update([]string{metaTree}, func(tx storage.Tx) error {
			_, err := tx.Insert(metaTree, []byte(metaKey), encodeMetadata(db.meta))
			return err
		}); err != nil {
			return nil, err
		}
	} else {
		m, err := decodeMetadata(raw)
		if err != nil {
			return nil, err
		}
		db.meta = m
	}

	if err := engine.Iterate(backupTree, func(k, _ []byte) bool {
		db.cache.Add(k)
		return true
	}); err != nil {
		return nil, err
	}

	return db, nil
}

// CachedMeta returns the in-memory metadata snapshot taken after the most
// recent successful Open, Commit, or BranchFrom.
func (db *GridDb) CachedMeta() GridDbMetadata {
	return db.meta
}

// Read is a point lookup against the working tree.
func (db *GridDb) Read(key []byte) (*change.Change, error) {
	return readWorkingTree(db.engine, db.workingTree, key)
}

// Write applies changes to the working tree in one transaction over
// {working, backup}, recording whatever reverse changes the backup tree's
// oldest-value discipline requires. The in-memory BackupKeyCache is
// updated only once that transaction has committed; a failed Write leaves
// the cache, and therefore I1, untouched. An empty batch is a no-op that
// never opens a transaction (P8).
func (db *GridDb) Write(changes EncodedChanges) error {
	if len(changes) == 0 {
		return nil
	}

	var reverse EncodedChanges
	err := db.engine.Update([]string{db.workingTree, db.backupTree}, func(tx storage.Tx) error {
		r, err := applyWorkingTree(tx, db.workingTree, db.cache, changes)
		if err != nil {
			return err
		}
		if err := insertBackupBatch(tx, db.backupTree, r); err != nil {
			return err
		}
		reverse = r
		return nil
	})
	if err != nil {
		return err
	}

	for _, ec := range reverse {
		db.cache.Add(ec.Key)
	}
	return nil
}

// Commit freezes the current working version's backup into the graph and
// opens a new, empty working version. It is a strict no-op when the backup
// cache is empty (P4): metadata, graph, and archive are left untouched and
// no transaction is opened.
func (db *GridDb) Commit() error {
	if db.cache.Len() == 0 {
		return nil
	}

	oldWorking := db.meta.WorkingVersion
	oldParent := db.meta.ParentVersion

	var newMeta GridDbMetadata
	err := db.engine.Update(
		[]string{db.backupTree, db.versionGraphTree, db.versionChangesTree, db.metaTree},
		func(tx storage.Tx) error {
			if oldParent != nil {
				vc, err := drainBackupIntoArchive(tx, db.backupTree, db.cache)
				if err != nil {
					return err
				}
				if err := putArchive(tx, db.versionChangesTree, *oldParent, vc); err != nil {
					return err
				}
			} else {
				if err := clearBackup(tx, db.backupTree, db.cache); err != nil {
					return err
				}
			}

			if err := linkGraph(tx, db.versionGraphTree, oldWorking, VersionNode{Parent: oldParent}); err != nil {
				return err
			}

			newID, err := tx.GenerateID()
			if err != nil {
				return err
			}

			newMeta = GridDbMetadata{
				GrandparentVersion: oldParent,
				ParentVersion:      versionPtr(oldWorking),
				WorkingVersion:     Version(newID),
			}
			_, err = tx.Insert(db.metaTree, []byte(metaKey), encodeMetadata(newMeta))
			return err
		},
	)
	if err != nil {
		return err
	}

	db.cache.Reset()
	db.meta = newMeta
	return nil
}

// BranchFrom commits the current working version, then — unless there is
// still no parent version after that commit (nothing was ever committed),
// in which case BranchFrom is a no-op — rewrites the working tree to reflect
// target by replaying archived deltas along the graph path from the old
// parent to target, archiving the inverse deltas produced along the way so
// the state being left behind remains reachable.
func (db *GridDb) BranchFrom(target Version) error {
	if err := db.Commit(); err != nil {
		return err
	}
	if db.meta.ParentVersion == nil {
		return nil
	}
	oldParent := *db.meta.ParentVersion

	var newMeta GridDbMetadata
	err := db.engine.Update(
		[]string{db.metaTree, db.versionGraphTree, db.versionChangesTree, db.workingTree},
		func(tx storage.Tx) error {
			path, endParent, err := findPath(tx, db.versionGraphTree, oldParent, target)
			if err != nil {
				return err
			}

			replayCache := newBackupKeyCache()
			for i := 0; i+1 < len(path); i++ {
				prev, next := path[i], path[i+1]

				vc, ok, err := takeArchive(tx, db.versionChangesTree, next)
				if err != nil {
					return err
				}
				if !ok {
					return ErrMissingVersionChanges
				}

				ordered := make(EncodedChanges, len(vc))
				copy(ordered, vc)
				sort.Slice(ordered, func(a, b int) bool { return bytes.Compare(ordered[a].Key, ordered[b].Key) < 0 })

				reverse, err := applyWorkingTree(tx, db.workingTree, replayCache, ordered)
				if err != nil {
					return err
				}
				if err := putArchive(tx, db.versionChangesTree, prev, reverse); err != nil {
					return err
				}
			}

			newID, err := tx.GenerateID()
			if err != nil {
				return err
			}

			newMeta = GridDbMetadata{
				GrandparentVersion: endParent,
				ParentVersion:      versionPtr(target),
				WorkingVersion:     Version(newID),
			}
			_, err = tx.Insert(db.metaTree, []byte(metaKey), encodeMetadata(newMeta))
			return err
		},
	)
	if err != nil {
		return err
	}

	db.cache.Reset()
	db.meta = newMeta
	return nil
}

// Close releases the underlying engine's resources.
func (db *GridDb) Close() error {
	return db.engine.Close()
}
