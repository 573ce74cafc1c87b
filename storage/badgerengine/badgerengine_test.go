package badgerengine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunfardo314/griddb/storage"
	"github.com/lunfardo314/griddb/storage/badgerengine"
)

func openTestEngine(t *testing.T) *badgerengine.Engine {
	t.Helper()
	e, err := badgerengine.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestGetMissingKeyReturnsNil(t *testing.T) {
	e := openTestEngine(t)
	v, err := e.Get("t", []byte("missing"))
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestUpdateInsertThenGet(t *testing.T) {
	e := openTestEngine(t)
	err := e.Update([]string{"t"}, func(tx storage.Tx) error {
		_, err := tx.Insert("t", []byte("k"), []byte("v"))
		return err
	})
	require.NoError(t, err)

	v, err := e.Get("t", []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	e := openTestEngine(t)
	sentinel := errors.New("boom")
	err := e.Update([]string{"t"}, func(tx storage.Tx) error {
		if _, err := tx.Insert("t", []byte("k"), []byte("v")); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	v, err := e.Get("t", []byte("k"))
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestTreesArePartitioned(t *testing.T) {
	e := openTestEngine(t)
	err := e.Update([]string{"a", "b"}, func(tx storage.Tx) error {
		if _, err := tx.Insert("a", []byte("k"), []byte("in-a")); err != nil {
			return err
		}
		_, err := tx.Insert("b", []byte("k"), []byte("in-b"))
		return err
	})
	require.NoError(t, err)

	va, err := e.Get("a", []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("in-a"), va)

	vb, err := e.Get("b", []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("in-b"), vb)
}

func TestIterateReturnsAscendingOrder(t *testing.T) {
	e := openTestEngine(t)
	err := e.Update([]string{"t"}, func(tx storage.Tx) error {
		for _, k := range []string{"c", "a", "b"} {
			if _, err := tx.Insert("t", []byte(k), []byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var seen []string
	require.NoError(t, e.Iterate("t", func(k, _ []byte) bool {
		seen = append(seen, string(k))
		return true
	}))
	require.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestGenerateIDMonotonicAndStartsAfterZero(t *testing.T) {
	e := openTestEngine(t)
	var ids []uint64
	for i := 0; i < 3; i++ {
		err := e.Update([]string{"t"}, func(tx storage.Tx) error {
			id, err := tx.GenerateID()
			ids = append(ids, id)
			return err
		})
		require.NoError(t, err)
	}
	require.Equal(t, []uint64{1, 2, 3}, ids)
}

func TestRemoveReturnsPriorValue(t *testing.T) {
	e := openTestEngine(t)
	err := e.Update([]string{"t"}, func(tx storage.Tx) error {
		_, err := tx.Insert("t", []byte("k"), []byte("v"))
		return err
	})
	require.NoError(t, err)

	err = e.Update([]string{"t"}, func(tx storage.Tx) error {
		prior, err := tx.Remove("t", []byte("k"))
		require.Equal(t, []byte("v"), prior)
		return err
	})
	require.NoError(t, err)

	v, err := e.Get("t", []byte("k"))
	require.NoError(t, err)
	require.Nil(t, v)
}
