package change_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunfardo314/griddb/change"
)

func TestRemoveRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, change.Serialize(&buf, change.Remove))
	require.Equal(t, change.RemoveEncodedSize, buf.Len())

	decoded, err := change.Deserialize(&buf)
	require.NoError(t, err)
	require.True(t, decoded.IsRemove())
}

func TestInsertRoundTrip(t *testing.T) {
	c := change.Insert([]byte("cell payload"))

	var buf bytes.Buffer
	require.NoError(t, change.Serialize(&buf, c))
	require.Equal(t, c.EncodedSize(), buf.Len())

	decoded, err := change.Deserialize(&buf)
	require.NoError(t, err)
	require.False(t, decoded.IsRemove())
	v, ok := decoded.Value()
	require.True(t, ok)
	require.Equal(t, []byte("cell payload"), v)
}

func TestInsertEmptyValueRoundTrip(t *testing.T) {
	c := change.Insert(nil)

	var buf bytes.Buffer
	require.NoError(t, change.Serialize(&buf, c))

	decoded, err := change.Deserialize(&buf)
	require.NoError(t, err)
	v, ok := decoded.Value()
	require.True(t, ok)
	require.Empty(t, v)
}

func TestDeserializeUnknownTag(t *testing.T) {
	_, err := change.Deserialize(bytes.NewReader([]byte{0x7f}))
	require.Error(t, err)
}
