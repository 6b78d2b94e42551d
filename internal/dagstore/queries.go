package dagstore

import (
	"github.com/pkg/errors"

	"github.com/latticenet/lattice/internal/storage"
	"github.com/latticenet/lattice/internal/types"
	"github.com/latticenet/lattice/internal/wireformat"
)

// GetBlock returns the full block (header + body) for hash, or
// ok=false if it is not stored. Matches spec.md §4.1's
// get_block(hash) → Option<Block>.
func (s *Store) GetBlock(hash types.Hash) (*types.Block, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	header, ok, err := s.getHeaderLocked(hash)
	if err != nil || !ok {
		return nil, ok, err
	}
	body, ok, err := s.getBodyLocked(hash)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &types.Block{Header: header, Body: body}, true, nil
}

// Header returns just the header, satisfying ghostdag.PastView.
func (s *Store) Header(hash types.Hash) (*types.Header, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok, err := s.getHeaderLocked(hash)
	if err != nil {
		return nil, false
	}
	return h, ok
}

func (s *Store) getHeaderLocked(hash types.Hash) (*types.Header, bool, error) {
	if h, ok := s.headerCache.Get(hash); ok {
		return h, true, nil
	}
	raw, err := s.engine.Get(bucketBlocks.Key(hash[:]))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &types.PersistenceFailureError{Cause: err}
	}
	header, rest, err := decodeBlockRecord(raw)
	if err != nil {
		return nil, false, err
	}
	s.headerCache.Add(hash, header)
	s.bodyCache.Add(hash, rest)
	return header, true, nil
}

func (s *Store) getBodyLocked(hash types.Hash) ([]byte, bool, error) {
	if b, ok := s.bodyCache.Get(hash); ok {
		return b, true, nil
	}
	if _, ok, err := s.getHeaderLocked(hash); err != nil || !ok {
		return nil, ok, err
	}
	b, ok := s.bodyCache.Get(hash)
	return b, ok, nil
}

// decodeBlockRecord splits a stored (header || body) record back into
// its two parts using the 4-byte header-length prefix written by
// encodeBlockRecord; every byte after the header is body.
func decodeBlockRecord(record []byte) (*types.Header, []byte, error) {
	header, consumed, err := decodeHeaderPrefix(record)
	if err != nil {
		return nil, nil, err
	}
	return header, record[consumed:], nil
}

// GetMetadata returns the GhostDAG-derived metadata for hash.
func (s *Store) GetMetadata(hash types.Hash) (*types.Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok, err := s.getMetadataLocked(hash)
	if err != nil {
		return nil, false
	}
	return meta, ok
}

func (s *Store) getMetadataLocked(hash types.Hash) (*types.Metadata, bool, error) {
	if m, ok := s.metaCache.Get(hash); ok {
		return m, true, nil
	}
	raw, err := s.engine.Get(bucketMetadata.Key(hash[:]))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &types.PersistenceFailureError{Cause: err}
	}
	meta, err := wireformat.DecodeMetadata(raw)
	if err != nil {
		return nil, false, err
	}
	s.metaCache.Add(hash, meta)
	return meta, true, nil
}

// GetParents returns the declared parent set of hash.
func (s *Store) GetParents(hash types.Hash) ([]types.Hash, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	header, ok, err := s.getHeaderLocked(hash)
	if err != nil || !ok {
		return nil, ok, err
	}
	return header.Parents(), true, nil
}

// GetChildren returns the reverse-index child set of hash.
func (s *Store) GetChildren(hash types.Hash) map[types.Hash]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.children[hash]
	out := make(map[types.Hash]struct{}, len(set))
	for h := range set {
		out[h] = struct{}{}
	}
	return out
}

// Contains reports whether hash is stored.
func (s *Store) Contains(hash types.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.headerCache.Contains(hash) {
		return true
	}
	ok, err := s.engine.Has(bucketBlocks.Key(hash[:]))
	return err == nil && ok
}

// Tips returns the current tip set.
func (s *Store) Tips() []types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Hash, 0, len(s.tips))
	for h := range s.tips {
		out = append(out, h)
	}
	return out
}

// CanonicalHead returns the current head pointer.
func (s *Store) CanonicalHead() types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// IsAncestor reports whether a is an ancestor of b (a ∈ past(b)).
// Fast path: interval containment on the selected-parent spanning
// tree. Slow path: membership in b's materialized past set
// (blue_set ∪ red_set), which is already computed and stored by the
// GhostDAG engine - spec.md §9 forbids recomputing it, so this is a
// cache read, not a walk.
func (s *Store) IsAncestor(a, b types.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAncestorLocked(a, b)
}

// isAncestorLocked is IsAncestor's body, factored out so Anticone can
// reuse the same fast-path/slow-path check while already holding
// s.mu. Must be called with s.mu held (read or write).
func (s *Store) isAncestorLocked(a, b types.Hash) (bool, error) {
	if a == b {
		return false, nil
	}

	if s.reach.IsTreeAncestor(a, b) {
		return true, nil
	}

	meta, ok, err := s.getMetadataLocked(b)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, errors.Errorf("dagstore: is_ancestor: %s not found", b)
	}
	if meta.SelectedParent == a {
		return true, nil
	}
	if meta.BlueSetContains(a) {
		return true, nil
	}
	for _, h := range meta.RedSet {
		if h == a {
			return true, nil
		}
	}
	return false, nil
}

// Past returns the bounded transitive closure of hash's parents, up
// to limit entries. Since blue_set ∪ red_set ∪ {selected_parent} is
// already exactly past(hash) (spec.md §9), this is a direct read of
// the stored metadata rather than a fresh walk.
func (s *Store) Past(hash types.Hash, limit int) ([]types.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok, err := s.getMetadataLocked(hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("dagstore: past: %s not found", hash)
	}
	out := make([]types.Hash, 0, len(meta.BlueSet)+len(meta.RedSet))
	out = append(out, meta.BlueSet...)
	out = append(out, meta.RedSet...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Anticone returns the blocks in past(reference) that are not in
// past(hash) ∪ {hash} and of which hash is not an ancestor, per
// spec.md §4.1's definition.
func (s *Store) Anticone(hash, reference types.Hash) ([]types.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refMeta, ok, err := s.getMetadataLocked(reference)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("dagstore: anticone: %s not found", reference)
	}
	hashPast := make(map[types.Hash]struct{})
	if hash != reference {
		hMeta, ok, err := s.getMetadataLocked(hash)
		if err != nil {
			return nil, err
		}
		if ok {
			for _, h := range hMeta.BlueSet {
				hashPast[h] = struct{}{}
			}
			for _, h := range hMeta.RedSet {
				hashPast[h] = struct{}{}
			}
		}
	}
	hashPast[hash] = struct{}{}

	var out []types.Hash
	candidates := append(append([]types.Hash{}, refMeta.BlueSet...), refMeta.RedSet...)
	for _, c := range candidates {
		if _, inPast := hashPast[c]; inPast {
			continue
		}
		// Same fast-path/slow-path ancestry check IsAncestor uses: the
		// selected-parent spanning tree alone misses merge-parent-side
		// ancestry, which is why this also has to consult c's own
		// blue_set/red_set membership.
		isAncestor, err := s.isAncestorLocked(hash, c)
		if err != nil {
			return nil, err
		}
		if isAncestor {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// SubscribeHeadChanges returns a channel delivering one event per
// canonical-head transition. Cancel by calling the returned unsubscribe
// function; the channel is closed afterwards.
func (s *Store) SubscribeHeadChanges() (<-chan HeadChange, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan HeadChange, 8) // small buffer: coalescing-safe, slow consumers may drop intermediate events
	s.subs[id] = ch
	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Store) publishHeadChange(old, newHead types.Hash) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- HeadChange{Old: old, New: newHead}:
		default:
			// Slow subscriber: drop rather than block the committer
			// (coalescing-safe per spec.md §5).
		}
	}
}
