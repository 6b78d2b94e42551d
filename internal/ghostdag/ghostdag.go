// Package ghostdag implements the GhostDAG blue/red classification
// algorithm (spec.md §4.2), adapted line-for-line from
// consensus/ghostdag/ghostdag.go - the teacher's own GHOSTDAG.Run. The
// pointer-chasing blocknode.BlockNode collaborator is replaced with a
// PastView abstraction backed by the committed store, since this
// engine classifies one candidate block at a time against already
// committed ancestors rather than holding the whole DAG in memory.
package ghostdag

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/latticenet/lattice/internal/dagconfig"
	"github.com/latticenet/lattice/internal/types"
)

// PastView is the read-only view of already-committed blocks the
// engine needs: parent lookup, per-block metadata and tree/past
// ancestry queries. internal/dagstore.Store satisfies this.
type PastView interface {
	GetMetadata(hash types.Hash) (*types.Metadata, bool)
	Header(hash types.Hash) (*types.Header, bool)
	// IsAncestor reports whether a is a (possibly indirect) ancestor
	// of b.
	IsAncestor(a, b types.Hash) (bool, error)
}

// Engine runs the GhostDAG protocol against a PastView.
type Engine struct {
	view   PastView
	params *dagconfig.Params
}

// New returns a GhostDAG engine bound to view and params.
func New(view PastView, params *dagconfig.Params) *Engine {
	return &Engine{view: view, params: params}
}

// Result is the GhostDAG-derived classification of a candidate block,
// ready to be persisted as types.Metadata. It carries no
// is_in_canonical_chain value; internal/core leaves that flag unset
// when it persists a Result.
type Result struct {
	SelectedParent types.Hash
	BlueSet        []types.Hash
	RedSet         []types.Hash
	BlueScore      uint64
	BlueWork       types.BlueWork
}

// Classify runs GHOSTDAG.Run over header's declared parents and
// returns the resulting blue/red classification. header.Parents()
// must already be known to the view (ParentsMissingError is the
// caller's concern, checked before Classify is invoked).
func (e *Engine) Classify(header *types.Header) (*Result, error) {
	parents := header.Parents()
	if len(parents) == 0 {
		return nil, errors.New("ghostdag: cannot classify a block with no parents")
	}

	selectedParent, err := e.bluest(parents)
	if err != nil {
		return nil, err
	}

	// bluesAnticoneSizes[h] is, for each current blue block h, the size
	// of h's anticone restricted to the blue set built up so far -
	// mirrors the teacher's BluesAnticoneSizes bookkeeping exactly.
	bluesAnticoneSizes := map[types.Hash]dagconfig.KType{selectedParent: 0}
	blues := []types.Hash{selectedParent}

	candidates, err := e.selectedParentAnticone(header, selectedParent)
	if err != nil {
		return nil, err
	}

	// Ascending by blue_score, tie-broken by smallest hash - spec.md
	// §4.2 step 3, matching the teacher's selectedParentAnticone sort
	// (blocknode.go's ascending less()).
	sort.Slice(candidates, func(i, j int) bool {
		a, b := e.refOf(candidates[i]), e.refOf(candidates[j])
		if a.BlueScore != b.BlueScore {
			return a.BlueScore < b.BlueScore
		}
		return candidates[i].Less(candidates[j])
	})

	selectedParentChain, err := e.chainBackFrom(header, selectedParent)
	if err != nil {
		return nil, err
	}

	for _, blueCandidate := range candidates {
		candidateBluesAnticoneSizes := make(map[types.Hash]dagconfig.KType)
		var candidateAnticoneSize dagconfig.KType
		possiblyBlue := true

		for _, chainBlock := range selectedParentChain {
			if chainBlock != headerSentinel {
				isAncestorOfCandidate, err := e.view.IsAncestor(chainBlock, blueCandidate)
				if err != nil {
					return nil, err
				}
				if isAncestorOfCandidate {
					break
				}
			}

			chainBlues, err := e.bluesOf(chainBlock, blues, header)
			if err != nil {
				return nil, err
			}

			for _, blue := range chainBlues {
				isAncestorOfCandidate, err := e.view.IsAncestor(blue, blueCandidate)
				if err != nil {
					return nil, err
				}
				if isAncestorOfCandidate {
					continue
				}

				size, err := e.blueAnticoneSize(blue, blues, bluesAnticoneSizes)
				if err != nil {
					return nil, err
				}
				candidateBluesAnticoneSizes[blue] = size
				candidateAnticoneSize++

				if candidateAnticoneSize > e.params.K {
					possiblyBlue = false
					break
				}
				if candidateBluesAnticoneSizes[blue] == e.params.K {
					possiblyBlue = false
					break
				}
				if candidateBluesAnticoneSizes[blue] > e.params.K {
					return nil, &types.KClusterViolationError{Hash: blue, K: uint8(e.params.K)}
				}
			}
			if !possiblyBlue {
				break
			}
		}

		if possiblyBlue {
			blues = append(blues, blueCandidate)
			bluesAnticoneSizes[blueCandidate] = candidateAnticoneSize
			for blue, size := range candidateBluesAnticoneSizes {
				bluesAnticoneSizes[blue] = size + 1
			}
			if dagconfig.KType(len(blues)) == e.params.K+1 {
				break
			}
		}
	}

	blueSet := make(map[types.Hash]struct{}, len(blues))
	for _, b := range blues {
		blueSet[b] = struct{}{}
	}

	redSet, err := e.pastMinusBlue(header, blueSet)
	if err != nil {
		return nil, err
	}

	spMeta, ok := e.view.GetMetadata(selectedParent)
	if !ok {
		return nil, errors.Errorf("ghostdag: selected parent %s has no metadata", selectedParent)
	}

	return &Result{
		SelectedParent: selectedParent,
		BlueSet:        blues,
		RedSet:         redSet,
		BlueScore:      spMeta.BlueScore + uint64(len(blues)),
		BlueWork:       spMeta.BlueWork.Add(uint64(len(blues))),
	}, nil
}

// headerSentinel marks "the candidate block itself" in the selected
// parent chain walk below, standing in for the teacher's
// chainBlock != newNode comparison (that loop starts at newNode, which
// has no stored hash yet since it has not been committed).
var headerSentinel types.Hash

// chainBackFrom returns [headerSentinel, selectedParent,
// selectedParent-of-selectedParent, ...] up to genesis, mirroring the
// teacher's `for chainBlock := newNode; ...; chainBlock =
// chainBlock.SelectedParent()` loop.
func (e *Engine) chainBackFrom(header *types.Header, selectedParent types.Hash) ([]types.Hash, error) {
	chain := []types.Hash{headerSentinel}
	current := selectedParent
	for {
		chain = append(chain, current)
		meta, ok := e.view.GetMetadata(current)
		if !ok {
			return nil, errors.Errorf("ghostdag: missing metadata for %s while walking selected parent chain", current)
		}
		if meta.SelectedParent.IsZero() {
			break
		}
		current = meta.SelectedParent
	}
	return chain, nil
}

// bluesOf returns the blue set belonging to chainBlock: header's own
// in-progress blues if chainBlock is the sentinel, else the committed
// metadata's blue set.
func (e *Engine) bluesOf(chainBlock types.Hash, headerBlues []types.Hash, header *types.Header) ([]types.Hash, error) {
	if chainBlock == headerSentinel {
		return headerBlues, nil
	}
	meta, ok := e.view.GetMetadata(chainBlock)
	if !ok {
		return nil, errors.Errorf("ghostdag: missing metadata for %s", chainBlock)
	}
	return meta.BlueSet, nil
}

// blueAnticoneSize looks up the anticone size of a blue block relative
// to the blue set being built this round. Entries accumulate in sizes
// exactly as the teacher's bluesAnticoneSizes map does; a blue with no
// entry yet is one this round hasn't touched, so its contribution so
// far is 0 - it still gets incremented correctly below whenever a new
// candidate is found in its anticone.
func (e *Engine) blueAnticoneSize(blue types.Hash, blues []types.Hash, sizes map[types.Hash]dagconfig.KType) (dagconfig.KType, error) {
	return sizes[blue], nil
}

// bluest returns whichever of parents has the greatest (blue_score,
// blue_work), tie-broken by smallest hash - spec.md §3's global
// tie-break policy, used here to pick the selected parent exactly as
// newNode.SetSelectedParent(newNode.Parents().Bluest()) does.
func (e *Engine) bluest(parents []types.Hash) (types.Hash, error) {
	best := e.refOf(parents[0])
	for _, p := range parents[1:] {
		ref := e.refOf(p)
		if ref.Dominates(best) {
			best = ref
		}
	}
	return best.Hash, nil
}

func (e *Engine) refOf(hash types.Hash) types.BlockRef {
	meta, ok := e.view.GetMetadata(hash)
	if !ok {
		// A hash with no stored metadata is treated as the zero ref
		// (blue_score 0, blue_work 0).
		return types.BlockRef{Hash: hash}
	}
	return types.BlockRef{Hash: hash, BlueScore: meta.BlueScore, BlueWork: meta.BlueWork}
}

// selectedParentAnticone returns the blocks in the anticone of
// selectedParent reachable from header's other declared parents,
// adapted from the teacher's selectedParentAnticone BFS.
func (e *Engine) selectedParentAnticone(header *types.Header, selectedParent types.Hash) ([]types.Hash, error) {
	anticoneSet := make(map[types.Hash]struct{})
	var anticoneSlice []types.Hash
	selectedParentPast := make(map[types.Hash]struct{})
	var queue []types.Hash

	for _, parent := range header.Parents() {
		if parent == selectedParent {
			continue
		}
		anticoneSet[parent] = struct{}{}
		anticoneSlice = append(anticoneSlice, parent)
		queue = append(queue, parent)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		currentHeader, ok := e.view.Header(current)
		if !ok {
			return nil, errors.Errorf("ghostdag: missing header for %s", current)
		}
		for _, parent := range currentHeader.Parents() {
			if _, ok := anticoneSet[parent]; ok {
				continue
			}
			if _, ok := selectedParentPast[parent]; ok {
				continue
			}
			isAncestor, err := e.view.IsAncestor(parent, selectedParent)
			if err != nil {
				return nil, err
			}
			if isAncestor {
				selectedParentPast[parent] = struct{}{}
				continue
			}
			anticoneSet[parent] = struct{}{}
			anticoneSlice = append(anticoneSlice, parent)
			queue = append(queue, parent)
		}
	}
	return anticoneSlice, nil
}

// pastMinusBlue computes header's full past (the union of every
// declared parent's own past plus the parents themselves) minus the
// blue set, giving the red set spec.md §4.2 defines. Bounded by the
// size of the past, matching the teacher's own approach of deriving
// red membership from already-materialized per-block past sets rather
// than a fresh DAG-wide walk.
func (e *Engine) pastMinusBlue(header *types.Header, blueSet map[types.Hash]struct{}) ([]types.Hash, error) {
	past := make(map[types.Hash]struct{})
	for _, parent := range header.Parents() {
		past[parent] = struct{}{}
		meta, ok := e.view.GetMetadata(parent)
		if !ok {
			return nil, errors.Errorf("ghostdag: missing metadata for parent %s", parent)
		}
		for _, h := range meta.BlueSet {
			past[h] = struct{}{}
		}
		for _, h := range meta.RedSet {
			past[h] = struct{}{}
		}
	}

	red := make([]types.Hash, 0, len(past))
	for h := range past {
		if _, isBlue := blueSet[h]; !isBlue {
			red = append(red, h)
		}
	}
	sort.Slice(red, func(i, j int) bool { return red[i].Less(red[j]) })
	return red, nil
}

// ValidateDeclared checks a header's declared selected_parent,
// blue_score and blue_work against a freshly computed Result,
// returning the specific typed error spec.md §7 calls for on mismatch.
func ValidateDeclared(header *types.Header, result *Result) error {
	if header.SelectedParentHash != result.SelectedParent {
		return &types.InvalidSelectedParentError{
			Declared: header.SelectedParentHash,
			Expected: result.SelectedParent,
		}
	}
	if header.BlueScore != result.BlueScore {
		return &types.InvalidBlueScoreError{
			Declared: header.BlueScore,
			Computed: result.BlueScore,
		}
	}
	if header.BlueWork != result.BlueWork {
		return &types.InvariantViolationError{
			Reason: "declared blue_work does not match computed blue_work",
		}
	}
	return nil
}
