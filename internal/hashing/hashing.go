// Package hashing computes the content-addressed block_hash of a
// header. spec.md §9 leaves the exact hash function as an
// implementer's choice ("BLAKE3 or equivalent 256-bit
// collision-resistant hash; the protocol pins a specific choice");
// lattice pins BLAKE2b-256, available in golang.org/x/crypto without
// pulling in a second hashing dependency family.
package hashing

import (
	"golang.org/x/crypto/blake2b"

	"github.com/latticenet/lattice/internal/types"
)

// HashBytes returns the BLAKE2b-256 digest of b as a types.Hash.
func HashBytes(b []byte) types.Hash {
	return blake2b.Sum256(b)
}

// HashHeader hashes the canonical encoding of a header's fields,
// excluding block_hash itself, per spec.md §6. The caller supplies the
// already-encoded bytes (internal/wireformat.EncodeForHash)
// so this package stays free of wire-format concerns.
func HashHeader(encoded []byte) types.Hash {
	return HashBytes(encoded)
}
