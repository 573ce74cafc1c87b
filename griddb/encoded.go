package griddb

import (
	"bytes"
	"sort"

	"github.com/lunfardo314/griddb/change"
)

// EncodedChange pairs an already-encoded key with the Change to apply
// there.
type EncodedChange struct {
	Key    []byte
	Change change.Change
}

// EncodedChanges is a batch of EncodedChange. Write and the internal tree
// operations require it sorted ascending by Key and deduplicated — the
// order the underlying engine's tree wants for ascending inserts. Use
// ChangeEncoder to build one.
type EncodedChanges []EncodedChange

// Key is satisfied by key.Key2D, key.Key3D, or any type whose Encode
// produces a byte-order-preserving key encoding; ChangeEncoder only needs
// that one method.
type Key interface {
	Encode() []byte
}

// ChangeEncoder accumulates (key, change) pairs, keeping only the latest
// change recorded for a given key, and emits them sorted by encoded key.
type ChangeEncoder struct {
	byKey map[string]EncodedChange
}

func NewChangeEncoder() *ChangeEncoder {
	return &ChangeEncoder{byKey: make(map[string]EncodedChange)}
}

// Put records that k should map to c, overwriting whatever was previously
// recorded for k.
func (e *ChangeEncoder) Put(k Key, c change.Change) {
	enc := k.Encode()
	e.byKey[string(enc)] = EncodedChange{Key: enc, Change: c}
}

// Encode returns the accumulated changes sorted ascending by encoded key.
func (e *ChangeEncoder) Encode() EncodedChanges {
	out := make(EncodedChanges, 0, len(e.byKey))
	for _, ec := range e.byKey {
		out = append(out, ec)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out
}
