// Package key implements the grid key codec: quadtree keys (level, 64-bit
// Morton code) and octree keys (level, 96-bit Morton code), encoded so that
// bytes.Compare on the encoded form agrees with (level, morton) ordering.
// That property is what lets every sorted structure built on top —
// storage.Engine's Iterate, the in-memory BackupKeyCache, ChangeArchive's
// per-version delta — rely on plain byte-order iteration instead of a
// custom comparator. Every field is fixed-width and big-endian, so encoding
// order is value order.
package key

import (
	"encoding/binary"
	"fmt"
)

// Key2D addresses a cell of a quadtree: a level and a 64-bit Morton code
// interleaving the cell's x/y coordinates at that level.
type Key2D struct {
	level  uint8
	morton uint64
}

// NewKey2D constructs a quadtree key from its level and precomputed Morton
// code. Morton code computation is the caller's responsibility; this
// package only encodes and orders already-computed keys.
func NewKey2D(level uint8, morton uint64) Key2D {
	return Key2D{level: level, morton: morton}
}

func (k Key2D) Level() uint8    { return k.level }
func (k Key2D) Morton() uint64  { return k.morton }
func (k Key2D) String() string  { return fmt.Sprintf("2d(%d,%d)", k.level, k.morton) }

const key2DSize = 1 + 8

// Encode returns the 9-byte big-endian encoding of k: 1 level byte followed
// by the 8-byte Morton code.
func (k Key2D) Encode() []byte {
	buf := make([]byte, key2DSize)
	buf[0] = k.level
	binary.BigEndian.PutUint64(buf[1:], k.morton)
	return buf
}

// DecodeKey2D parses the encoding produced by Key2D.Encode.
func DecodeKey2D(b []byte) (Key2D, error) {
	if len(b) != key2DSize {
		return Key2D{}, fmt.Errorf("key: invalid Key2D encoding length %d", len(b))
	}
	return Key2D{level: b[0], morton: binary.BigEndian.Uint64(b[1:])}, nil
}

// MinKey2D is the smallest possible Key2D at level: the first key any
// ascending iteration of that level will visit.
func MinKey2D(level uint8) Key2D { return Key2D{level: level, morton: 0} }

// MaxKey2D is the largest possible Key2D at level.
func MaxKey2D(level uint8) Key2D { return Key2D{level: level, morton: ^uint64(0)} }

// Key3D addresses a cell of an octree: a level and a 96-bit Morton code,
// represented as a 32-bit high word (only the low 32 bits are ever
// meaningful) and a 64-bit low word.
type Key3D struct {
	level uint8
	hi    uint32
	lo    uint64
}

// NewKey3D constructs an octree key from its level and a 96-bit Morton code
// split into a high word (low 32 bits significant) and low word.
func NewKey3D(level uint8, hi uint32, lo uint64) Key3D {
	return Key3D{level: level, hi: hi, lo: lo}
}

func (k Key3D) Level() uint8   { return k.level }
func (k Key3D) Hi() uint32     { return k.hi }
func (k Key3D) Lo() uint64     { return k.lo }
func (k Key3D) String() string { return fmt.Sprintf("3d(%d,%d,%d)", k.level, k.hi, k.lo) }

const key3DSize = 1 + 4 + 8

// Encode returns the 13-byte big-endian encoding of k: 1 level byte, the
// 4-byte high word, then the 8-byte low word.
func (k Key3D) Encode() []byte {
	buf := make([]byte, key3DSize)
	buf[0] = k.level
	binary.BigEndian.PutUint32(buf[1:5], k.hi)
	binary.BigEndian.PutUint64(buf[5:], k.lo)
	return buf
}

// DecodeKey3D parses the encoding produced by Key3D.Encode.
func DecodeKey3D(b []byte) (Key3D, error) {
	if len(b) != key3DSize {
		return Key3D{}, fmt.Errorf("key: invalid Key3D encoding length %d", len(b))
	}
	return Key3D{
		level: b[0],
		hi:    binary.BigEndian.Uint32(b[1:5]),
		lo:    binary.BigEndian.Uint64(b[5:]),
	}, nil
}

// MinKey3D is the smallest possible Key3D at level.
func MinKey3D(level uint8) Key3D { return Key3D{level: level} }

// MaxKey3D is the largest possible Key3D at level.
func MaxKey3D(level uint8) Key3D { return Key3D{level: level, hi: ^uint32(0), lo: ^uint64(0)} }
