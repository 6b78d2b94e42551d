package dagstore

import (
	"encoding/binary"
	"encoding/json"

	"github.com/latticenet/lattice/internal/storage"
	"github.com/latticenet/lattice/internal/types"
	"github.com/latticenet/lattice/internal/wireformat"
)

// encodeAndPutChildren persists the child set of parent as a json list
// in the children column family - grounded, like the heights and
// dagState records, on the teacher's own precedent of json-encoding
// auxiliary index records rather than hand-rolling a binary format for
// data that is never on the hot classification path.
func encodeAndPutChildren(batch storage.Batch, parent types.Hash, children []types.Hash) error {
	raw, err := json.Marshal(children)
	if err != nil {
		return err
	}
	batch.Put(bucketChildren.Key(parent[:]), raw)
	return nil
}

func decodeChildren(raw []byte) ([]types.Hash, error) {
	var children []types.Hash
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, &types.PersistenceFailureError{Cause: err}
	}
	return children, nil
}

// encodeBlockRecord wire-encodes header and prefixes it with its own
// length so a combined (header, body) blob can be split back apart
// without relying on the header codec being self-delimiting - header
// wire decoding rejects trailing bytes (wireformat.Decode), so the
// length prefix here, not the header codec itself, is what makes the
// blocks column family record splittable.
func encodeBlockRecord(header *types.Header, body []byte) ([]byte, error) {
	encodedHeader, err := wireformat.Encode(header)
	if err != nil {
		return nil, err
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(encodedHeader)))

	out := make([]byte, 0, 4+len(encodedHeader)+len(body))
	out = append(out, lenPrefix[:]...)
	out = append(out, encodedHeader...)
	out = append(out, body...)
	return out, nil
}

// decodeHeaderPrefix parses a length-prefixed header out of record and
// returns it along with the number of bytes consumed (4 + header
// length), so the caller can slice off the remaining body bytes.
func decodeHeaderPrefix(record []byte) (*types.Header, int, error) {
	if len(record) < 4 {
		return nil, 0, &types.MalformedHeaderError{Reason: "block record too short for length prefix"}
	}
	headerLen := binary.BigEndian.Uint32(record[:4])
	end := 4 + int(headerLen)
	if end > len(record) {
		return nil, 0, &types.MalformedHeaderError{Reason: "block record length prefix exceeds record size"}
	}
	header, err := wireformat.Decode(record[4:end])
	if err != nil {
		return nil, 0, err
	}
	return header, end, nil
}
