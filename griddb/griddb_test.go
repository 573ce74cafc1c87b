package griddb_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunfardo314/griddb/change"
	"github.com/lunfardo314/griddb/griddb"
	"github.com/lunfardo314/griddb/key"
	"github.com/lunfardo314/griddb/storage"
	"github.com/lunfardo314/griddb/storage/memengine"
)

// encodeVersionForTest mirrors the 8-byte BE version encoding spec.md §6
// fixes for the version-changes tree's key, so tests can reach in and
// simulate on-disk corruption without the griddb package exporting its
// internal codec.
func encodeVersionForTest(v griddb.Version) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return buf[:]
}

func openTestDB(t *testing.T) *griddb.GridDb {
	t.Helper()
	db, err := griddb.Open(memengine.New(), "test")
	require.NoError(t, err)
	return db
}

func changesOf(t *testing.T, pairs ...interface{}) griddb.EncodedChanges {
	t.Helper()
	enc := griddb.NewChangeEncoder()
	require.Zero(t, len(pairs)%2)
	for i := 0; i < len(pairs); i += 2 {
		k := pairs[i].(key.Key3D)
		c := pairs[i+1].(change.Change)
		enc.Put(k, c)
	}
	return enc.Encode()
}

func requireValue(t *testing.T, db *griddb.GridDb, k key.Key3D, want []byte) {
	t.Helper()
	c, err := db.Read(k.Encode())
	require.NoError(t, err)
	require.NotNil(t, c)
	v, ok := c.Value()
	require.True(t, ok)
	require.Equal(t, want, v)
}

func requireAbsent(t *testing.T, db *griddb.GridDb, k key.Key3D) {
	t.Helper()
	c, err := db.Read(k.Encode())
	require.NoError(t, err)
	require.Nil(t, c)
}

// Scenario 1: write/read same version.
func TestWriteReadSameVersion(t *testing.T) {
	db := openTestDB(t)
	k := key.NewKey3D(1, 0, 0)

	require.NoError(t, db.Write(changesOf(t, k, change.Insert([]byte{0}))))
	requireValue(t, db, k, []byte{0})
}

// Scenario 2: empty commit is a no-op.
func TestEmptyCommitIsNoOp(t *testing.T) {
	db := openTestDB(t)

	meta := db.CachedMeta()
	require.Nil(t, meta.GrandparentVersion)
	require.Nil(t, meta.ParentVersion)
	require.EqualValues(t, 0, meta.WorkingVersion)

	require.NoError(t, db.Commit())

	after := db.CachedMeta()
	require.Equal(t, meta, after)
}

// Scenario 3: commit, revert, reapply.
func TestCommitRevertReapply(t *testing.T) {
	db := openTestDB(t)
	k1 := key.NewKey3D(1, 0, 1)

	require.NoError(t, db.Write(changesOf(t, k1, change.Insert([]byte{0}))))
	v0 := db.CachedMeta().WorkingVersion
	require.NoError(t, db.Commit())

	require.NoError(t, db.Write(changesOf(t, k1, change.Remove)))
	v1 := db.CachedMeta().WorkingVersion
	require.NoError(t, db.Commit())

	meta := db.CachedMeta()
	require.NotNil(t, meta.GrandparentVersion)
	require.Equal(t, v0, *meta.GrandparentVersion)
	require.NotNil(t, meta.ParentVersion)
	require.Equal(t, v1, *meta.ParentVersion)
	require.EqualValues(t, 2, meta.WorkingVersion)
	requireAbsent(t, db, k1)

	require.NoError(t, db.BranchFrom(v0))
	requireValue(t, db, k1, []byte{0})
}

// Scenario 4: sibling branches.
func TestSiblingBranches(t *testing.T) {
	db := openTestDB(t)
	k1 := key.NewKey3D(1, 0, 1)
	k2 := key.NewKey3D(1, 0, 2)

	require.NoError(t, db.Write(changesOf(t, k1, change.Insert([]byte{0}))))
	v0 := db.CachedMeta().WorkingVersion
	require.NoError(t, db.Commit())

	require.NoError(t, db.Write(changesOf(t, k1, change.Remove)))
	v1 := db.CachedMeta().WorkingVersion
	require.NoError(t, db.Commit())

	// Go back to v0 so that v2 becomes a sibling of v1.
	require.NoError(t, db.BranchFrom(v0))

	require.NoError(t, db.Write(changesOf(t, k2, change.Insert([]byte{0}))))
	v2 := db.CachedMeta().WorkingVersion
	require.NoError(t, db.Commit())

	require.NoError(t, db.BranchFrom(v1))
	requireAbsent(t, db, k1)
	requireAbsent(t, db, k2)

	require.NoError(t, db.BranchFrom(v2))
	requireValue(t, db, k1, []byte{0})
	requireValue(t, db, k2, []byte{0})
}

// Scenario 5: backup oldest-value discipline.
func TestBackupOldestValueDiscipline(t *testing.T) {
	db := openTestDB(t)
	k1 := key.NewKey3D(1, 0, 1)

	require.NoError(t, db.Write(changesOf(t, k1, change.Insert([]byte{'A'}))))
	parent := db.CachedMeta().WorkingVersion
	require.NoError(t, db.Commit())

	require.NoError(t, db.Write(changesOf(t, k1, change.Insert([]byte{'B'}))))
	require.NoError(t, db.Write(changesOf(t, k1, change.Insert([]byte{'C'}))))
	require.NoError(t, db.Commit())

	require.NoError(t, db.BranchFrom(parent))
	requireValue(t, db, k1, []byte{'A'})
}

// P8: write with an empty change set changes nothing.
func TestWriteEmptyChangeSetIsNoOp(t *testing.T) {
	db := openTestDB(t)
	before := db.CachedMeta()
	require.NoError(t, db.Write(nil))
	require.Equal(t, before, db.CachedMeta())
}

// P7: version ids emitted by successive commits are strictly increasing.
func TestVersionIdsIncreaseAcrossCommits(t *testing.T) {
	db := openTestDB(t)
	k := key.NewKey3D(1, 0, 1)

	var ids []uint64
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Write(changesOf(t, k, change.Insert([]byte{byte(i)}))))
		ids = append(ids, uint64(db.CachedMeta().WorkingVersion))
		require.NoError(t, db.Commit())
	}
	for i := 1; i < len(ids); i++ {
		require.Greater(t, ids[i], ids[i-1])
	}
}

// Scenario 6: a missing archive entry on the path aborts BranchFrom cleanly,
// leaving cached_meta untouched.
func TestBranchFromMissingArchiveAbortsCleanly(t *testing.T) {
	engine := memengine.New()
	db, err := griddb.Open(engine, "test")
	require.NoError(t, err)

	k1 := key.NewKey3D(1, 0, 1)
	require.NoError(t, db.Write(changesOf(t, k1, change.Insert([]byte{0}))))
	v0 := db.CachedMeta().WorkingVersion
	require.NoError(t, db.Commit())

	require.NoError(t, db.Write(changesOf(t, k1, change.Remove)))
	require.NoError(t, db.Commit())

	// Manually delete the archived delta for v0's only archived parent
	// edge from the version-changes tree, simulating corruption on the
	// path BranchFrom(v0) would otherwise replay.
	before := db.CachedMeta()
	err = engine.Update([]string{"test-version-changes"}, func(tx storage.Tx) error {
		_, err := tx.Remove("test-version-changes", encodeVersionForTest(v0))
		return err
	})
	require.NoError(t, err)

	err = db.BranchFrom(v0)
	require.ErrorIs(t, err, griddb.ErrMissingVersionChanges)
	require.Equal(t, before, db.CachedMeta())
}

// P3: after a sequence of writes without a commit, reopening the db rebuilds
// a BackupKeyCache equal to the set of distinct keys touched since the last
// commit — observable here as the reopened handle's Commit archiving a delta
// for both keys, which BranchFrom back to the parent then replays.
func TestReopenRebuildsBackupCache(t *testing.T) {
	engine := memengine.New()
	db, err := griddb.Open(engine, "test")
	require.NoError(t, err)

	k1 := key.NewKey3D(1, 0, 1)
	k2 := key.NewKey3D(1, 0, 2)
	require.NoError(t, db.Write(changesOf(t, k1, change.Insert([]byte{'A'}))))
	require.NoError(t, db.Commit())

	require.NoError(t, db.Write(changesOf(t, k1, change.Insert([]byte{'B'}))))
	require.NoError(t, db.Write(changesOf(t, k2, change.Insert([]byte{'C'}))))

	reopened, err := griddb.Open(engine, "test")
	require.NoError(t, err)

	require.NoError(t, reopened.Commit())
	parent := db.CachedMeta().ParentVersion
	require.NotNil(t, parent)

	require.NoError(t, reopened.BranchFrom(*parent))
	requireValue(t, reopened, k1, []byte{'A'})
	requireAbsent(t, reopened, k2)
}
