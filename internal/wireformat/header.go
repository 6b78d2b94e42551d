// Package wireformat implements the bit-exact header encoding of
// spec.md §6, grounded on the teacher's binary (de)serialization idiom
// in consensus/blockindex/blockindexio.go (fixed-width fields written
// with binary.BigEndian/LittleEndian, length-prefixed variable fields,
// io.ReadFull for fixed arrays).
package wireformat

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/latticenet/lattice/internal/types"
)

// byteOrder is the network byte order pinned by spec.md §6.
var byteOrder = binary.BigEndian

// EncodeSigningPayload encodes every header field except block_hash
// and signature, in wire order. This is the message an Ed25519
// signature is computed over.
func EncodeSigningPayload(h *types.Header) ([]byte, error) {
	if len(h.MergeParentHashes) > 0xFFFFFFFF {
		return nil, errors.New("too many merge parents to encode")
	}
	if len(h.ExtraData) > types.ExtraDataMaxSize {
		return nil, &types.ExtraDataTooLargeError{Size: len(h.ExtraData), Max: types.ExtraDataMaxSize}
	}

	buf := new(bytes.Buffer)
	writeUint32(buf, h.Version)
	buf.Write(h.SelectedParentHash[:])
	writeUint32(buf, uint32(len(h.MergeParentHashes)))
	for _, p := range h.MergeParentHashes {
		buf.Write(p[:])
	}
	writeUint64(buf, h.Timestamp)
	writeUint64(buf, h.Height)
	writeUint64(buf, h.BlueScore)
	buf.Write(h.BlueWork[:])
	buf.Write(h.PruningPoint[:])
	buf.Write(h.ProposerPubkey[:])
	buf.Write(h.VRFReveal[:])
	buf.Write(h.TxRoot[:])
	buf.Write(h.StateRoot[:])
	buf.Write(h.ReceiptRoot[:])
	buf.Write(h.ArtifactRoot[:])
	writeUint32(buf, uint32(len(h.ExtraData)))
	buf.Write(h.ExtraData)
	return buf.Bytes(), nil
}

// EncodeForHash encodes every header field except block_hash - the
// signing payload followed by the signature - which is what block_hash
// is computed over (spec.md §6: "hash of the canonical serialisation
// of all other header fields").
func EncodeForHash(h *types.Header) ([]byte, error) {
	payload, err := EncodeSigningPayload(h)
	if err != nil {
		return nil, err
	}
	return append(payload, h.Signature[:]...), nil
}

// Encode encodes the full header, block_hash included, in wire order:
// version first, then block_hash, then the remaining signing-payload
// fields and the signature (spec.md §6).
func Encode(h *types.Header) ([]byte, error) {
	payload, err := EncodeForHash(h)
	if err != nil {
		return nil, err
	}
	// payload is version(4) || rest-of-signing-payload || signature;
	// splice block_hash in right after version.
	out := make([]byte, 0, types.HashSize+len(payload))
	out = append(out, payload[:4]...)
	out = append(out, h.BlockHash[:]...)
	out = append(out, payload[4:]...)
	return out, nil
}

// Decode parses a full wire-encoded header. It does not verify
// block_hash or the signature - callers validate those explicitly
// (see internal/core's structural validation stage) so that decode
// failures (MalformedHeaderError) stay distinct from hash/signature
// mismatches (InvalidHashError / InvalidSignatureError).
func Decode(b []byte) (*types.Header, error) {
	r := bytes.NewReader(b)
	h := &types.Header{}

	var err error
	if h.Version, err = readUint32(r); err != nil {
		return nil, malformed("version", err)
	}
	if err := readHash(r, &h.BlockHash); err != nil {
		return nil, malformed("block_hash", err)
	}
	if err := readHash(r, &h.SelectedParentHash); err != nil {
		return nil, malformed("selected_parent_hash", err)
	}
	nMergeParents, err := readUint32(r)
	if err != nil {
		return nil, malformed("n_merge_parents", err)
	}
	if nMergeParents > 0 {
		h.MergeParentHashes = make([]types.Hash, nMergeParents)
	}
	for i := range h.MergeParentHashes {
		if err := readHash(r, &h.MergeParentHashes[i]); err != nil {
			return nil, malformed("merge_parent_hashes", err)
		}
	}
	if h.Timestamp, err = readUint64(r); err != nil {
		return nil, malformed("timestamp", err)
	}
	if h.Height, err = readUint64(r); err != nil {
		return nil, malformed("height", err)
	}
	if h.BlueScore, err = readUint64(r); err != nil {
		return nil, malformed("blue_score", err)
	}
	if _, err := io.ReadFull(r, h.BlueWork[:]); err != nil {
		return nil, malformed("blue_work", err)
	}
	if err := readHash(r, &h.PruningPoint); err != nil {
		return nil, malformed("pruning_point", err)
	}
	if _, err := io.ReadFull(r, h.ProposerPubkey[:]); err != nil {
		return nil, malformed("proposer_pubkey", err)
	}
	if _, err := io.ReadFull(r, h.VRFReveal[:]); err != nil {
		return nil, malformed("vrf_reveal", err)
	}
	if err := readHash(r, &h.TxRoot); err != nil {
		return nil, malformed("tx_root", err)
	}
	if err := readHash(r, &h.StateRoot); err != nil {
		return nil, malformed("state_root", err)
	}
	if err := readHash(r, &h.ReceiptRoot); err != nil {
		return nil, malformed("receipt_root", err)
	}
	if err := readHash(r, &h.ArtifactRoot); err != nil {
		return nil, malformed("artifact_root", err)
	}
	extraDataLen, err := readUint32(r)
	if err != nil {
		return nil, malformed("extra_data_len", err)
	}
	if extraDataLen > types.ExtraDataMaxSize {
		return nil, &types.ExtraDataTooLargeError{Size: int(extraDataLen), Max: types.ExtraDataMaxSize}
	}
	if extraDataLen > 0 {
		h.ExtraData = make([]byte, extraDataLen)
	}
	if _, err := io.ReadFull(r, h.ExtraData); err != nil {
		return nil, malformed("extra_data", err)
	}
	if _, err := io.ReadFull(r, h.Signature[:]); err != nil {
		return nil, malformed("signature", err)
	}
	if r.Len() != 0 {
		return nil, malformed("trailing bytes", errors.Errorf("%d unexpected trailing bytes", r.Len()))
	}

	return h, nil
}

func malformed(field string, cause error) error {
	return &types.MalformedHeaderError{Reason: field + ": " + cause.Error()}
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	byteOrder.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(b[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint64(b[:]), nil
}

func readHash(r io.Reader, h *types.Hash) error {
	_, err := io.ReadFull(r, h[:])
	return err
}
