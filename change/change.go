// Package change implements the change codec: the two-variant value stored
// against a key in a version delta, either "insert this value" or "remove
// whatever was there". The wire format is one tag byte followed, for
// Insert, by a length-prefixed payload written with
// common.WriteBytes32/ReadBytes32, the same length-prefixing convention
// used elsewhere in this codebase's framing, so a Change slots into it
// instead of inventing a new one.
package change

import (
	"fmt"
	"io"

	"github.com/lunfardo314/griddb/common"
)

const (
	tagRemove byte = 0x00
	tagInsert byte = 0x01

	// RemoveEncodedSize is the fixed wire size of Remove: one tag byte.
	RemoveEncodedSize = 1
)

// Change is either Remove or an Insert of a value. The zero value is Remove.
type Change struct {
	insert bool
	value  []byte
}

// Insert returns a Change that replaces whatever is at the key with value.
// A nil value is stored as an empty slice; an empty slice is a valid stored
// value, distinct from Remove.
func Insert(value []byte) Change {
	if value == nil {
		value = []byte{}
	}
	return Change{insert: true, value: value}
}

// Remove is the Change that deletes whatever is at the key.
var Remove = Change{}

// IsRemove reports whether c is the Remove variant.
func (c Change) IsRemove() bool { return !c.insert }

// Value returns c's payload and true if c is an Insert, or (nil, false) if
// c is Remove.
func (c Change) Value() ([]byte, bool) {
	if !c.insert {
		return nil, false
	}
	return c.value, true
}

// EncodedSize returns the exact number of bytes Serialize will write for c.
func (c Change) EncodedSize() int {
	if !c.insert {
		return RemoveEncodedSize
	}
	return 1 + 4 + len(c.value)
}

// Serialize writes c's wire encoding to w.
func Serialize(w io.Writer, c Change) error {
	if !c.insert {
		_, err := w.Write([]byte{tagRemove})
		return err
	}
	if _, err := w.Write([]byte{tagInsert}); err != nil {
		return err
	}
	return common.WriteBytes32(w, c.value)
}

// Deserialize reads one Change from r, as written by Serialize.
func Deserialize(r io.Reader) (Change, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return Change{}, err
	}
	switch tag[0] {
	case tagRemove:
		return Remove, nil
	case tagInsert:
		v, err := common.ReadBytes32(r)
		if err != nil {
			return Change{}, err
		}
		return Insert(v), nil
	default:
		return Change{}, fmt.Errorf("change: unknown tag byte 0x%02x", tag[0])
	}
}
