package griddb

import (
	"bytes"

	"github.com/lunfardo314/griddb/change"
	"github.com/lunfardo314/griddb/common"
	"github.com/lunfardo314/griddb/storage"
)

// encodeVersionChanges serializes a VersionChanges delta as a count
// followed by (length-prefixed key, change) pairs, reusing the same
// length-prefixed framing common.WriteBytes32/ReadBytes32 give the change
// codec's Insert payload.
func encodeVersionChanges(vc EncodedChanges) ([]byte, error) {
	var buf bytes.Buffer
	if err := common.WriteUint32(&buf, uint32(len(vc))); err != nil {
		return nil, err
	}
	for _, ec := range vc {
		if err := common.WriteBytes32(&buf, ec.Key); err != nil {
			return nil, err
		}
		if err := change.Serialize(&buf, ec.Change); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeVersionChanges(b []byte) (EncodedChanges, error) {
	r := bytes.NewReader(b)
	var n uint32
	if err := common.ReadUint32(r, &n); err != nil {
		return nil, err
	}
	out := make(EncodedChanges, 0, n)
	for i := uint32(0); i < n; i++ {
		k, err := common.ReadBytes32(r)
		if err != nil {
			return nil, err
		}
		c, err := change.Deserialize(r)
		if err != nil {
			return nil, err
		}
		out = append(out, EncodedChange{Key: k, Change: c})
	}
	return out, nil
}

// putArchive serializes and writes vc under version, overwriting whatever
// was there. Overwrites only happen on the re-archive step during
// BranchFrom and are safe because the prior content was just consumed by
// takeArchive.
func putArchive(tx storage.Tx, tree string, version Version, vc EncodedChanges) error {
	blob, err := encodeVersionChanges(vc)
	if err != nil {
		return err
	}
	_, err = tx.Insert(tree, encodeVersion(version), blob)
	return err
}

// takeArchive atomically removes and returns the delta archived under
// version. ok is false if no entry was archived for version.
func takeArchive(tx storage.Tx, tree string, version Version) (vc EncodedChanges, ok bool, err error) {
	blob, err := tx.Remove(tree, encodeVersion(version))
	if err != nil {
		return nil, false, err
	}
	if blob == nil {
		return nil, false, nil
	}
	vc, err = decodeVersionChanges(blob)
	if err != nil {
		return nil, false, err
	}
	return vc, true, nil
}
