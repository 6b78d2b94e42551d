package wireformat

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/latticenet/lattice/internal/types"
)

// EncodeMetadata serializes a types.Metadata record for the `metadata`
// column family, grounded on the varint-counted hash-list idiom of
// consensus/blockindex/blockindexio.go's deserializeBlockNode (which
// serializes a block's blues/bluesAnticoneSizes the same way).
func EncodeMetadata(m *types.Metadata) []byte {
	buf := new(bytes.Buffer)
	buf.Write(m.SelectedParent[:])
	writeUint64(buf, m.BlueScore)
	buf.Write(m.BlueWork[:])
	if m.IsInCanonicalChain {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	writeVarUint(buf, uint64(len(m.BlueSet)))
	for _, h := range m.BlueSet {
		buf.Write(h[:])
	}
	writeVarUint(buf, uint64(len(m.RedSet)))
	for _, h := range m.RedSet {
		buf.Write(h[:])
	}
	return buf.Bytes()
}

// DecodeMetadata parses a metadata record encoded by EncodeMetadata.
func DecodeMetadata(b []byte) (*types.Metadata, error) {
	r := bytes.NewReader(b)
	m := &types.Metadata{}

	if err := readHash(r, &m.SelectedParent); err != nil {
		return nil, errors.Wrap(err, "decoding selected_parent")
	}
	var err error
	if m.BlueScore, err = readUint64(r); err != nil {
		return nil, errors.Wrap(err, "decoding blue_score")
	}
	if _, err := io.ReadFull(r, m.BlueWork[:]); err != nil {
		return nil, errors.Wrap(err, "decoding blue_work")
	}
	canonByte, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrap(err, "decoding is_in_canonical_chain")
	}
	m.IsInCanonicalChain = canonByte != 0

	blueCount, err := readVarUint(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding blue_set length")
	}
	m.BlueSet = make([]types.Hash, blueCount)
	for i := range m.BlueSet {
		if err := readHash(r, &m.BlueSet[i]); err != nil {
			return nil, errors.Wrap(err, "decoding blue_set entry")
		}
	}

	redCount, err := readVarUint(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding red_set length")
	}
	m.RedSet = make([]types.Hash, redCount)
	for i := range m.RedSet {
		if err := readHash(r, &m.RedSet[i]); err != nil {
			return nil, errors.Wrap(err, "decoding red_set entry")
		}
	}

	return m, nil
}

func writeVarUint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func readVarUint(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}
