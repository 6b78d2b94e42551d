// Package reachability implements the interval-numbering reachability
// index spec.md §4.1 calls for ("Implementation may use a reachability
// index (e.g. interval numbering) for O(log n) answers"). This is
// kaspad's signature technique, grounded on the way
// consensus/blockdag/dag.go and consensus/ghostdag/ghostdag.go lean on
// a reachabilityTree collaborator for isInPast/isInSelectedParentChainOf
// queries rather than walking parent pointers at query time.
//
// The tree here is the spanning tree formed by selected-parent
// pointers: every block has exactly one tree-parent (its selected
// parent), so interval containment answers "is a an ancestor of b
// along the selected-parent chain" in O(1). Ancestry that only holds
// through a merge parent (i.e. off the selected-parent spanning tree)
// is answered from the block's memoized past set (blue_set ∪ red_set)
// instead of a second tree structure - that set already has to exist
// once a block is classified (spec.md §9: "the store is the cache"),
// so consulting it is a cache hit, not a recomputation.
package reachability

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/latticenet/lattice/internal/types"
)

// rootCapacity is the width of the interval assigned to the genesis
// block. It must be large enough that reindexing is rare in practice;
// doubling on overflow keeps it correct regardless.
const rootCapacity = uint64(1) << 62

type interval struct {
	start, end uint64 // [start, end)
}

func (iv interval) size() uint64 { return iv.end - iv.start }

func (iv interval) contains(other interval) bool {
	return iv.start <= other.start && other.end <= iv.end
}

type node struct {
	hash     types.Hash
	parent   types.Hash
	hasParent bool
	children []types.Hash
	iv       interval
	// used is how much of iv has been handed out to children so far
	// (the node itself owns a single unit at iv.start, and children
	// occupy [iv.start+1, iv.start+1+used)).
	used uint64
}

// Tree is the selected-parent-chain spanning tree used for O(1)
// tree-ancestry queries.
type Tree struct {
	mu    sync.RWMutex
	nodes map[types.Hash]*node
}

// New returns an empty reachability tree.
func New() *Tree {
	return &Tree{nodes: make(map[types.Hash]*node)}
}

// AddGenesis registers the genesis block as the tree root.
func (t *Tree) AddGenesis(hash types.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[hash] = &node{
		hash: hash,
		iv:   interval{start: 0, end: rootCapacity},
	}
}

// AddBlock registers hash as a tree-child of selectedParent, assigning
// it an interval within the parent's remaining space (reindexing the
// parent's subtree if that space is exhausted).
func (t *Tree) AddBlock(hash, selectedParent types.Hash) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := t.nodes[selectedParent]
	if !ok {
		return errors.Errorf("reachability: unknown selected parent %s", selectedParent)
	}

	remaining := parent.iv.size() - 1 - parent.used // -1: parent reserves one unit for itself
	if remaining == 0 {
		t.reindexSubtree(parent, parent.iv.size()*2)
		remaining = parent.iv.size() - 1 - parent.used
	}

	// Hand out half of whatever remains (capped to at least 1) so
	// later siblings still have room without forcing a reindex on
	// every single insertion - the same amortization idea as kaspad's
	// real reindex-on-overflow scheme, simplified to a fixed split
	// rule instead of its capacity-estimation heuristic.
	childSize := remaining / 2
	if childSize == 0 {
		childSize = remaining
	}

	childStart := parent.iv.start + 1 + parent.used
	child := &node{
		hash:      hash,
		parent:    selectedParent,
		hasParent: true,
		iv:        interval{start: childStart, end: childStart + childSize},
	}
	parent.used += childSize
	parent.children = append(parent.children, hash)
	t.nodes[hash] = child
	return nil
}

// reindexSubtree doubles the capacity of node n's interval and
// redistributes its existing children proportionally, recursing into
// each child. Must be called with the write lock held.
func (t *Tree) reindexSubtree(n *node, newSize uint64) {
	n.iv.end = n.iv.start + newSize
	n.used = 0

	childCount := uint64(len(n.children))
	if childCount == 0 {
		return
	}
	available := newSize - 1
	share := available / childCount
	if share == 0 {
		share = 1
	}

	cursor := n.iv.start + 1
	for _, childHash := range n.children {
		child := t.nodes[childHash]
		child.iv = interval{start: cursor, end: cursor + share}
		n.used += share
		cursor += share
		// Recursively give the child's own subtree the same doubled
		// capacity so its descendants keep fitting.
		t.reindexSubtree(child, share)
	}
}

// IsTreeAncestor reports whether a is an ancestor of b along the
// selected-parent spanning tree (O(1) interval containment). A false
// result does not mean a is not an ancestor of b at all - it may still
// be reachable through a merge parent; callers combine this with a
// materialized past-set check (see dagstore.Store.IsAncestor).
func (t *Tree) IsTreeAncestor(a, b types.Hash) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	na, ok := t.nodes[a]
	if !ok {
		return false
	}
	nb, ok := t.nodes[b]
	if !ok {
		return false
	}
	return na.iv.contains(nb.iv)
}

// Contains reports whether hash has been registered with the tree.
func (t *Tree) Contains(hash types.Hash) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.nodes[hash]
	return ok
}
