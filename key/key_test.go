package key_test

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunfardo314/griddb/key"
)

func TestKey2DRoundTrip(t *testing.T) {
	k := key.NewKey2D(3, 0xdeadbeefcafebabe)
	decoded, err := key.DecodeKey2D(k.Encode())
	require.NoError(t, err)
	require.Equal(t, k, decoded)
}

func TestKey3DRoundTrip(t *testing.T) {
	k := key.NewKey3D(7, 0x0000abcd, 0x1122334455667788)
	decoded, err := key.DecodeKey3D(k.Encode())
	require.NoError(t, err)
	require.Equal(t, k, decoded)
}

func TestKey2DEncodingOrderMatchesValueOrder(t *testing.T) {
	keys := []key.Key2D{
		key.NewKey2D(1, 5),
		key.NewKey2D(1, 1),
		key.NewKey2D(0, 9999),
		key.NewKey2D(2, 0),
		key.NewKey2D(1, 1<<63),
	}
	encoded := make([][]byte, len(keys))
	for i, k := range keys {
		encoded[i] = k.Encode()
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Level() != keys[j].Level() {
			return keys[i].Level() < keys[j].Level()
		}
		return keys[i].Morton() < keys[j].Morton()
	})
	sort.Slice(encoded, func(i, j int) bool { return bytes.Compare(encoded[i], encoded[j]) < 0 })

	for i, k := range keys {
		require.Equal(t, k.Encode(), encoded[i])
	}
}

func TestMinMaxKey2D(t *testing.T) {
	min := key.MinKey2D(4)
	max := key.MaxKey2D(4)
	require.True(t, bytes.Compare(min.Encode(), max.Encode()) < 0)
}

func TestMinMaxKey3D(t *testing.T) {
	min := key.MinKey3D(4)
	max := key.MaxKey3D(4)
	require.True(t, bytes.Compare(min.Encode(), max.Encode()) < 0)
}
