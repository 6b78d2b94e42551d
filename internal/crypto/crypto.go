// Package crypto provides the Ed25519 primitives used to sign and
// verify canonical header encodings (spec.md §3/§6). It also underlies
// the ECVRF construction in internal/vrf.
package crypto

import (
	"crypto/ed25519"

	"github.com/latticenet/lattice/internal/types"
)

// Verify reports whether sig is a valid Ed25519 signature over msg
// under pub.
func Verify(pub types.PubKey, msg []byte, sig types.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig[:])
}

// Sign produces an Ed25519 signature over msg under sk. Used only by
// test fixtures and local block-assembly helpers - block production
// itself is an external collaborator's responsibility (spec.md §1).
func Sign(sk ed25519.PrivateKey, msg []byte) types.Signature {
	var sig types.Signature
	copy(sig[:], ed25519.Sign(sk, msg))
	return sig
}

// GenerateKey generates a fresh Ed25519 keypair for test fixtures.
func GenerateKey() (types.PubKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return types.PubKey{}, nil, err
	}
	var pk types.PubKey
	copy(pk[:], pub)
	return pk, priv, nil
}
