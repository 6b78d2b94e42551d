package wireformat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/lattice/internal/types"
)

func sampleHeader() *types.Header {
	return &types.Header{
		Version:            1,
		BlockHash:          types.Hash{0xAA},
		SelectedParentHash: types.Hash{0x01},
		MergeParentHashes:  []types.Hash{{0x02}, {0x03}},
		Timestamp:          1000,
		Height:             7,
		BlueScore:          42,
		BlueWork:           types.NewBlueWorkFromUint64(42),
		PruningPoint:       types.Hash{0x04},
		ProposerPubkey:     types.PubKey{0x05},
		VRFReveal:          types.VRFProof{0x06},
		TxRoot:             types.Hash{0x07},
		StateRoot:          types.Hash{0x08},
		ReceiptRoot:        types.Hash{0x09},
		ArtifactRoot:       types.Hash{0x0A},
		ExtraData:          []byte("hello"),
		Signature:          types.Signature{0x0B},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := sampleHeader()
	encoded, err := Encode(h)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, h, decoded)
}

func TestEncodeDecodeGenesisRoundTrip(t *testing.T) {
	h := &types.Header{Version: 1, Height: 0}
	encoded, err := Encode(h)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.True(t, decoded.IsGenesis())
	require.Equal(t, h, decoded)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	h := sampleHeader()
	encoded, err := Encode(h)
	require.NoError(t, err)

	_, err = Decode(append(encoded, 0xFF))
	require.Error(t, err)
	var malformedErr *types.MalformedHeaderError
	require.ErrorAs(t, err, &malformedErr)
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	h := sampleHeader()
	encoded, err := Encode(h)
	require.NoError(t, err)

	_, err = Decode(encoded[:len(encoded)-5])
	require.Error(t, err)
	var malformedErr *types.MalformedHeaderError
	require.ErrorAs(t, err, &malformedErr)
}

func TestEncodeSigningPayloadRejectsOversizedExtraData(t *testing.T) {
	h := sampleHeader()
	h.ExtraData = make([]byte, types.ExtraDataMaxSize+1)
	_, err := EncodeSigningPayload(h)
	require.Error(t, err)
	var tooLargeErr *types.ExtraDataTooLargeError
	require.ErrorAs(t, err, &tooLargeErr)
}

func TestEncodeForHashExcludesBlockHashButIncludesSignature(t *testing.T) {
	h := sampleHeader()
	payload, err := EncodeSigningPayload(h)
	require.NoError(t, err)
	forHash, err := EncodeForHash(h)
	require.NoError(t, err)
	require.Equal(t, append(payload, h.Signature[:]...), forHash)

	full, err := Encode(h)
	require.NoError(t, err)
	want := append(append([]byte{}, forHash[:4]...), h.BlockHash[:]...)
	want = append(want, forHash[4:]...)
	require.Equal(t, want, full)
}

// TestEncodeBlockHashAtFixedOffset locks in spec.md §6's wire layout:
// u32 version first, then the 32-byte block_hash immediately after,
// at bytes [4:36].
func TestEncodeBlockHashAtFixedOffset(t *testing.T) {
	h := sampleHeader()
	encoded, err := Encode(h)
	require.NoError(t, err)

	require.Equal(t, uint32(h.Version), byteOrder.Uint32(encoded[0:4]))
	var gotHash types.Hash
	copy(gotHash[:], encoded[4:36])
	require.Equal(t, h.BlockHash, gotHash)
}
