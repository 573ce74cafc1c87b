package griddb

import (
	"encoding/binary"
	"fmt"
)

// Version is a monotonically allocated, never-reused, never-renumbered
// identifier for a committed state of the working tree. Version 0 is the
// initial working version created on first Open.
type Version uint64

const versionSize = 8

func encodeVersion(v Version) []byte {
	var buf [versionSize]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return buf[:]
}

func decodeVersion(b []byte) (Version, error) {
	if len(b) != versionSize {
		return 0, fmt.Errorf("griddb: invalid version encoding length %d", len(b))
	}
	return Version(binary.BigEndian.Uint64(b)), nil
}

func versionPtr(v Version) *Version { return &v }

// VersionNode is the parent edge recorded for a version at the moment it
// stops being the working tip: {parent: Option<Version>}, stored in the
// version graph tree under the child's id. A nil Parent marks the graph
// root.
type VersionNode struct {
	Parent *Version
}

const (
	versionNodeNoParent byte = 0
	versionNodeParent   byte = 1
)

func encodeVersionNode(n VersionNode) []byte {
	if n.Parent == nil {
		return []byte{versionNodeNoParent}
	}
	buf := make([]byte, 1+versionSize)
	buf[0] = versionNodeParent
	copy(buf[1:], encodeVersion(*n.Parent))
	return buf
}

func decodeVersionNode(b []byte) (VersionNode, error) {
	if len(b) == 0 {
		return VersionNode{}, fmt.Errorf("griddb: empty version node encoding")
	}
	switch b[0] {
	case versionNodeNoParent:
		return VersionNode{}, nil
	case versionNodeParent:
		if len(b) != 1+versionSize {
			return VersionNode{}, fmt.Errorf("griddb: invalid version node encoding length %d", len(b))
		}
		v, err := decodeVersion(b[1:])
		if err != nil {
			return VersionNode{}, err
		}
		return VersionNode{Parent: &v}, nil
	default:
		return VersionNode{}, fmt.Errorf("griddb: unknown version node tag 0x%02x", b[0])
	}
}

// GridDbMetadata pins a GridDb's current place in the version graph: the
// working version being mutated, its parent (nil only before the first
// commit), and the parent's parent, cached purely to avoid a graph lookup.
type GridDbMetadata struct {
	GrandparentVersion *Version
	ParentVersion      *Version
	WorkingVersion     Version
}

const (
	metaFlagGrandparent byte = 1 << 0
	metaFlagParent      byte = 1 << 1
)

func encodeMetadata(m GridDbMetadata) []byte {
	var flags byte
	if m.GrandparentVersion != nil {
		flags |= metaFlagGrandparent
	}
	if m.ParentVersion != nil {
		flags |= metaFlagParent
	}
	buf := make([]byte, 0, 1+3*versionSize)
	buf = append(buf, flags)
	if m.GrandparentVersion != nil {
		buf = append(buf, encodeVersion(*m.GrandparentVersion)...)
	}
	if m.ParentVersion != nil {
		buf = append(buf, encodeVersion(*m.ParentVersion)...)
	}
	buf = append(buf, encodeVersion(m.WorkingVersion)...)
	return buf
}

func decodeMetadata(b []byte) (GridDbMetadata, error) {
	if len(b) < 1 {
		return GridDbMetadata{}, fmt.Errorf("griddb: empty metadata encoding")
	}
	flags := b[0]
	rest := b[1:]
	var m GridDbMetadata

	if flags&metaFlagGrandparent != 0 {
		if len(rest) < versionSize {
			return GridDbMetadata{}, fmt.Errorf("griddb: truncated metadata encoding")
		}
		v, err := decodeVersion(rest[:versionSize])
		if err != nil {
			return GridDbMetadata{}, err
		}
		m.GrandparentVersion = &v
		rest = rest[versionSize:]
	}
	if flags&metaFlagParent != 0 {
		if len(rest) < versionSize {
			return GridDbMetadata{}, fmt.Errorf("griddb: truncated metadata encoding")
		}
		v, err := decodeVersion(rest[:versionSize])
		if err != nil {
			return GridDbMetadata{}, err
		}
		m.ParentVersion = &v
		rest = rest[versionSize:]
	}
	if len(rest) != versionSize {
		return GridDbMetadata{}, fmt.Errorf("griddb: invalid metadata encoding length")
	}
	working, err := decodeVersion(rest)
	if err != nil {
		return GridDbMetadata{}, err
	}
	m.WorkingVersion = working
	return m, nil
}
