package dagstore

import (
	"github.com/pkg/errors"

	"github.com/latticenet/lattice/internal/storage"
	"github.com/latticenet/lattice/internal/types"
)

// PutBlock commits block and its already-computed GhostDAG metadata
// atomically: block record, metadata record, child-index updates, tip
// set and head pointer all land in one batch (spec.md §4.1, P8). The
// caller (internal/core) is responsible for running GhostDAG
// classification and structural validation before calling PutBlock;
// this method's job is solely to make the result durable and update
// the derived views (tips, head, reachability tree) consistently.
func (s *Store) PutBlock(header *types.Header, body []byte, meta *types.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok, err := s.getHeaderLocked(header.BlockHash); err != nil {
		return err
	} else if ok {
		return &types.AlreadyPresentError{Hash: header.BlockHash}
	}

	parents := header.Parents()
	var missing []types.Hash
	for _, p := range parents {
		if _, ok, err := s.getHeaderLocked(p); err != nil {
			return err
		} else if !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &types.ParentsMissingError{Missing: missing}
	}

	batch := s.engine.NewBatch()
	if err := s.writeBlock(batch, header, body, meta); err != nil {
		return err
	}

	for _, p := range parents {
		children, err := s.childrenOf(p)
		if err != nil {
			return err
		}
		children = append(children, header.BlockHash)
		if err := encodeAndPutChildren(batch, p, children); err != nil {
			return err
		}
	}

	newTips := make(map[types.Hash]struct{}, len(s.tips)+1)
	for t := range s.tips {
		newTips[t] = struct{}{}
	}
	for _, p := range parents {
		delete(newTips, p)
	}
	newTips[header.BlockHash] = struct{}{}

	oldHead := s.head
	newHead := s.computeCanonicalHeadOver(newTips)

	if err := s.writeStateFor(batch, newTips, newHead); err != nil {
		return err
	}

	if err := batch.Commit(); err != nil {
		return &types.PersistenceFailureError{Cause: err}
	}

	// Only now - once the batch is durable - does the in-memory view
	// move forward, so a failed Commit above leaves tips/head exactly
	// as they were (spec.md §4.1/P8 atomicity).
	s.tips = newTips
	s.head = newHead

	if err := s.reach.AddBlock(header.BlockHash, meta.SelectedParent); err != nil {
		return &types.InvariantViolationError{Reason: err.Error()}
	}
	s.headerCache.Add(header.BlockHash, header)
	s.bodyCache.Add(header.BlockHash, body)
	s.metaCache.Add(header.BlockHash, meta)
	for _, p := range parents {
		s.addChild(p, header.BlockHash)
	}

	if newHead != oldHead {
		log.Infof("canonical head changed %s -> %s", oldHead, newHead)
		s.publishHeadChange(oldHead, newHead)
	}
	return nil
}

// computeCanonicalHead scans the current tip set for the block
// dominating under the global tie-break policy (spec.md §4.4, P6).
// Must be called with s.mu held.
func (s *Store) computeCanonicalHead() types.Hash {
	return s.computeCanonicalHeadOver(s.tips)
}

// computeCanonicalHeadOver is computeCanonicalHead generalized to a
// prospective tip set that has not yet been assigned to s.tips, so
// PutBlock can decide the would-be head before committing anything.
// Must be called with s.mu held.
func (s *Store) computeCanonicalHeadOver(tips map[types.Hash]struct{}) types.Hash {
	var best types.Hash
	var bestRef types.BlockRef
	first := true
	for tip := range tips {
		meta, ok, err := s.getMetadataLocked(tip)
		var ref types.BlockRef
		if err == nil && ok {
			ref = types.BlockRef{Hash: tip, BlueScore: meta.BlueScore, BlueWork: meta.BlueWork}
		} else {
			ref = types.BlockRef{Hash: tip}
		}
		if first || ref.Dominates(bestRef) {
			best = tip
			bestRef = ref
			first = false
		}
	}
	return best
}

func (s *Store) childrenOf(hash types.Hash) ([]types.Hash, error) {
	raw, err := s.engine.Get(bucketChildren.Key(hash[:]))
	if errors.Is(err, storage.ErrNotFound) {
		set := s.children[hash]
		out := make([]types.Hash, 0, len(set))
		for h := range set {
			out = append(out, h)
		}
		return out, nil
	}
	if err != nil {
		return nil, &types.PersistenceFailureError{Cause: err}
	}
	return decodeChildren(raw)
}
