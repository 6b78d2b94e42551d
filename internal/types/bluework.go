package types

import "math/big"

// BlueWorkSize is the length in bytes of the on-wire blue_work field
// (u128, big-endian, per spec.md §6).
const BlueWorkSize = 16

// BlueWork is the cumulative work metric carried along the
// selected-parent chain. It is monotonic along that chain (P5) and is
// stored as a big-endian 128-bit unsigned integer on the wire.
type BlueWork [BlueWorkSize]byte

// ZeroBlueWork is the genesis value.
var ZeroBlueWork = BlueWork{}

// NewBlueWorkFromUint64 builds a BlueWork from a uint64 value.
func NewBlueWorkFromUint64(v uint64) BlueWork {
	var bw BlueWork
	big.NewInt(0).SetUint64(v).FillBytes(bw[:])
	return bw
}

// Big returns the BlueWork as a *big.Int.
func (bw BlueWork) Big() *big.Int {
	return new(big.Int).SetBytes(bw[:])
}

// Add returns bw + delta as a BlueWork. internal/ghostdag uses it for
// the additive blue_work formula: blue_work(B) = blue_work(sp) + the
// number of blocks B adds to the blue set.
func (bw BlueWork) Add(delta uint64) BlueWork {
	sum := new(big.Int).Add(bw.Big(), big.NewInt(0).SetUint64(delta))
	var out BlueWork
	b := sum.Bytes()
	if len(b) > BlueWorkSize {
		// Overflow of a 128-bit counter is not reachable within any
		// realistic chain lifetime; clamp defensively rather than wrap.
		for i := range out {
			out[i] = 0xFF
		}
		return out
	}
	copy(out[BlueWorkSize-len(b):], b)
	return out
}

// Cmp compares two BlueWork values as unsigned 128-bit integers.
func (bw BlueWork) Cmp(other BlueWork) int {
	for i := 0; i < BlueWorkSize; i++ {
		if bw[i] != other[i] {
			if bw[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether bw < other.
func (bw BlueWork) Less(other BlueWork) bool {
	return bw.Cmp(other) < 0
}
