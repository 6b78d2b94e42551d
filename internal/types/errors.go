package types

import "fmt"

// The error kinds below mirror spec.md §7's classification by layer:
// structural, dependency, consensus, storage and internal. Each is a
// distinct type so callers can discriminate with errors.As, grounded
// on the teacher's common.RuleError / ErrNotInDAG closed-error idiom
// (consensus/blockdag/dagio.go, consensus/blockdag/accept.go).

// ParentsMissingError signals that at least one declared parent is
// not yet present in the store. Not a validity failure - the caller is
// expected to fetch the missing parents and resubmit.
type ParentsMissingError struct {
	Missing []Hash
}

func (e *ParentsMissingError) Error() string {
	return fmt.Sprintf("parents missing: %d hash(es)", len(e.Missing))
}

// AlreadyPresentError is returned when a block with the same hash is
// already committed to the store.
type AlreadyPresentError struct {
	Hash Hash
}

func (e *AlreadyPresentError) Error() string {
	return fmt.Sprintf("block %s already present", e.Hash)
}

// InvariantViolationError indicates a bug: a DAG invariant would be or
// was broken. Per spec.md §7 this halts commits and must surface to
// an operator.
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Reason)
}

// KClusterViolationError is returned when a declared selected parent
// cannot satisfy the k-cluster rule.
type KClusterViolationError struct {
	Hash Hash
	K    uint8
}

func (e *KClusterViolationError) Error() string {
	return fmt.Sprintf("block %s: k-cluster violation (k=%d)", e.Hash, e.K)
}

// InvalidSelectedParentError is returned when the declared selected
// parent is not in the parent set, or is not the correct choice under
// the selection rule.
type InvalidSelectedParentError struct {
	Declared, Expected Hash
}

func (e *InvalidSelectedParentError) Error() string {
	return fmt.Sprintf("invalid selected parent: declared %s, expected %s", e.Declared, e.Expected)
}

// InvalidBlueScoreError is returned when the computed blue score
// disagrees with the header's declared blue_score.
type InvalidBlueScoreError struct {
	Declared, Computed uint64
}

func (e *InvalidBlueScoreError) Error() string {
	return fmt.Sprintf("invalid blue score: declared %d, computed %d", e.Declared, e.Computed)
}

// InvalidHeightError is returned when height != 1 + max(parent heights).
type InvalidHeightError struct {
	Declared, Expected uint64
}

func (e *InvalidHeightError) Error() string {
	return fmt.Sprintf("invalid height: declared %d, expected %d", e.Declared, e.Expected)
}

// InvalidProposerError is returned when a block's VRF eligibility
// check fails at verification time.
type InvalidProposerError struct {
	Proposer PubKey
}

func (e *InvalidProposerError) Error() string {
	return fmt.Sprintf("invalid proposer: %s", e.Proposer)
}

// MalformedHeaderError is returned for any structurally invalid header
// encoding encountered before GhostDAG classification runs.
type MalformedHeaderError struct {
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("malformed header: %s", e.Reason)
}

// InvalidSignatureError is returned when a header's Ed25519 signature
// does not verify against its proposer_pubkey.
type InvalidSignatureError struct{}

func (e *InvalidSignatureError) Error() string { return "invalid header signature" }

// InvalidHashError is returned when block_hash does not equal the hash
// computed over the rest of the header.
type InvalidHashError struct {
	Declared, Computed Hash
}

func (e *InvalidHashError) Error() string {
	return fmt.Sprintf("invalid block hash: declared %s, computed %s", e.Declared, e.Computed)
}

// TimestampOutOfRangeError is returned when a header's timestamp
// violates the monotone-non-strict-along-selected-parent-chain rule
// or exceeds the permitted future-drift window.
type TimestampOutOfRangeError struct {
	Timestamp, Bound uint64
}

func (e *TimestampOutOfRangeError) Error() string {
	return fmt.Sprintf("timestamp %d out of range (bound %d)", e.Timestamp, e.Bound)
}

// ExtraDataTooLargeError is returned when extra_data exceeds ExtraDataMaxSize.
type ExtraDataTooLargeError struct {
	Size, Max int
}

func (e *ExtraDataTooLargeError) Error() string {
	return fmt.Sprintf("extra_data too large: %d > %d", e.Size, e.Max)
}

// TooManyParentsError is returned when a header declares more than
// max_parents parents (boundary B2).
type TooManyParentsError struct {
	Count, Max int
}

func (e *TooManyParentsError) Error() string {
	return fmt.Sprintf("too many parents: %d > %d", e.Count, e.Max)
}

// PersistenceFailureError wraps a failure of the underlying storage
// engine. It is fatal to the commit in progress but leaves prior state
// intact per spec.md §4.1's write-ahead commit discipline.
type PersistenceFailureError struct {
	Cause error
}

func (e *PersistenceFailureError) Error() string {
	return fmt.Sprintf("persistence failure: %s", e.Cause)
}

func (e *PersistenceFailureError) Unwrap() error { return e.Cause }
