// Package dagstore is the DAG Store component of spec.md §4.1: the
// sole owner of block records, GhostDAG metadata, the child index,
// the tip set and the canonical head pointer. Grounded on the
// teacher's BlockDAG (consensus/blockdag/dag.go) for the overall shape
// - a single struct holding a reader-writer lock plus collaborator
// caches - and on dagio.go for the json-serialized auxiliary "dagState"
// record (tips + head, the two pieces of state that are not
// per-block).
package dagstore

import (
	"encoding/json"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/latticenet/lattice/internal/dagconfig"
	"github.com/latticenet/lattice/internal/logs"
	"github.com/latticenet/lattice/internal/reachability"
	"github.com/latticenet/lattice/internal/storage"
	"github.com/latticenet/lattice/internal/types"
	"github.com/latticenet/lattice/internal/wireformat"
)

var log = logs.Logger("DAGS")

// Column families, per spec.md §6's "Persisted state layout".
var (
	bucketBlocks   = storage.Bucket("blocks")
	bucketMetadata = storage.Bucket("metadata")
	bucketChildren = storage.Bucket("children")
	bucketHeights  = storage.Bucket("heights")
	keyState       = storage.Bucket("state").Key([]byte("dagstate"))
)

// dagState is the auxiliary, non-per-block record: the tip set and
// head pointer, json-encoded the way the teacher's own dagState
// (consensus/blockdag/dagio.go) persists exactly this kind of small,
// infrequently-written aggregate.
type dagState struct {
	Tips []types.Hash
	Head types.Hash
}

// HeadChange describes a canonical-head transition delivered to
// subscribers (spec.md §4.4's head-change protocol).
type HeadChange struct {
	Old types.Hash
	New types.Hash
}

// Store is the concurrency-safe DAG store. Puts are serialised by
// holding mu exclusively; reads take mu shared for a point-in-time-consistent view
// (spec.md §4.1's concurrency contract).
type Store struct {
	engine storage.Engine
	params *dagconfig.Params

	mu sync.RWMutex

	reach *reachability.Tree

	headerCache *lru.Cache[types.Hash, *types.Header]
	bodyCache   *lru.Cache[types.Hash, []byte]
	metaCache   *lru.Cache[types.Hash, *types.Metadata]

	children map[types.Hash]map[types.Hash]struct{}
	tips     map[types.Hash]struct{}
	head     types.Hash

	subsMu sync.Mutex
	subs   map[int]chan HeadChange
	nextID int
}

const cacheSize = 4096

// Open opens (or creates, if empty) a DAG store backed by engine.
// genesisHeader/genesisBody are only consulted when the engine has no
// prior dagState record - i.e. this is a fresh node.
func Open(engine storage.Engine, params *dagconfig.Params, genesisHeader *types.Header, genesisBody []byte) (*Store, error) {
	headerCache, err := lru.New[types.Hash, *types.Header](cacheSize)
	if err != nil {
		return nil, err
	}
	bodyCache, err := lru.New[types.Hash, []byte](cacheSize)
	if err != nil {
		return nil, err
	}
	metaCache, err := lru.New[types.Hash, *types.Metadata](cacheSize)
	if err != nil {
		return nil, err
	}

	s := &Store{
		engine:      engine,
		params:      params,
		reach:       reachability.New(),
		headerCache: headerCache,
		bodyCache:   bodyCache,
		metaCache:   metaCache,
		children:    make(map[types.Hash]map[types.Hash]struct{}),
		tips:        make(map[types.Hash]struct{}),
		subs:        make(map[int]chan HeadChange),
	}

	if err := s.load(genesisHeader, genesisBody); err != nil {
		return nil, err
	}
	return s, nil
}

// load restores tips/head/children from the engine, or bootstraps a
// fresh store with the genesis block if none exists yet.
func (s *Store) load(genesisHeader *types.Header, genesisBody []byte) error {
	raw, err := s.engine.Get(keyState)
	if errors.Is(err, storage.ErrNotFound) {
		log.Infof("no existing dagstate found, bootstrapping genesis %s", genesisHeader.BlockHash)
		return s.commitGenesis(genesisHeader, genesisBody)
	}
	if err != nil {
		return &types.PersistenceFailureError{Cause: err}
	}

	var st dagState
	if err := json.Unmarshal(raw, &st); err != nil {
		return &types.PersistenceFailureError{Cause: err}
	}
	s.head = st.Head
	s.tips = make(map[types.Hash]struct{}, len(st.Tips))
	for _, h := range st.Tips {
		s.tips[h] = struct{}{}
	}

	// Rehydrate the reachability tree and the in-memory children index
	// by walking the heights column family from genesis upward.
	return s.rehydrate(genesisHeader.BlockHash)
}

func (s *Store) rehydrate(genesisHash types.Hash) error {
	s.reach.AddGenesis(genesisHash)

	it := s.engine.NewIterator(bucketHeights)
	defer it.Release()

	// heights are stored with a fixed-width big-endian key suffix so
	// iteration order is ascending by height; see keyHeight below.
	for it.Next() {
		var hashes []types.Hash
		if err := json.Unmarshal(it.Value(), &hashes); err != nil {
			return &types.PersistenceFailureError{Cause: err}
		}
		for _, h := range hashes {
			if h == genesisHash {
				continue
			}
			meta, ok, err := s.getMetadataLocked(h)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := s.reach.AddBlock(h, meta.SelectedParent); err != nil {
				return err
			}
			header, ok, err := s.getHeaderLocked(h)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			for _, parent := range header.Parents() {
				s.addChild(parent, h)
			}
		}
	}
	return it.Error()
}

func (s *Store) addChild(parent, child types.Hash) {
	set, ok := s.children[parent]
	if !ok {
		set = make(map[types.Hash]struct{})
		s.children[parent] = set
	}
	set[child] = struct{}{}
}

// commitGenesis installs the genesis block directly, bypassing
// GhostDAG classification (it has no parents to classify against) -
// mirrors the teacher's createDAGState bootstrapping the DAG to the
// single genesis tip.
func (s *Store) commitGenesis(header *types.Header, body []byte) error {
	if !header.IsGenesis() {
		return &types.InvariantViolationError{Reason: "commitGenesis called with a non-genesis header"}
	}
	meta := &types.Metadata{
		BlueSet:            nil,
		RedSet:             nil,
		BlueScore:          0,
		BlueWork:           types.BlueWork{},
		SelectedParent:     types.Hash{},
		IsInCanonicalChain: true,
	}

	batch := s.engine.NewBatch()
	if err := s.writeBlock(batch, header, body, meta); err != nil {
		return err
	}
	s.tips = map[types.Hash]struct{}{header.BlockHash: {}}
	s.head = header.BlockHash
	if err := s.writeState(batch); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return &types.PersistenceFailureError{Cause: err}
	}

	s.reach.AddGenesis(header.BlockHash)
	s.headerCache.Add(header.BlockHash, header)
	s.bodyCache.Add(header.BlockHash, body)
	s.metaCache.Add(header.BlockHash, meta)
	return nil
}

func keyHeight(height uint64) []byte {
	key := make([]byte, 8)
	for i := 0; i < 8; i++ {
		key[7-i] = byte(height >> (8 * i))
	}
	return bucketHeights.Key(key)
}

func (s *Store) writeBlock(batch storage.Batch, header *types.Header, body []byte, meta *types.Metadata) error {
	record, err := encodeBlockRecord(header, body)
	if err != nil {
		return err
	}
	batch.Put(bucketBlocks.Key(header.BlockHash[:]), record)
	batch.Put(bucketMetadata.Key(header.BlockHash[:]), wireformat.EncodeMetadata(meta))

	existingHeights, err := s.heightsAt(header.Height)
	if err != nil {
		return err
	}
	existingHeights = append(existingHeights, header.BlockHash)
	encodedHeights, err := json.Marshal(existingHeights)
	if err != nil {
		return err
	}
	batch.Put(keyHeight(header.Height), encodedHeights)
	return nil
}

func (s *Store) heightsAt(height uint64) ([]types.Hash, error) {
	raw, err := s.engine.Get(keyHeight(height))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &types.PersistenceFailureError{Cause: err}
	}
	var hashes []types.Hash
	if err := json.Unmarshal(raw, &hashes); err != nil {
		return nil, &types.PersistenceFailureError{Cause: err}
	}
	return hashes, nil
}

func (s *Store) writeState(batch storage.Batch) error {
	return s.writeStateFor(batch, s.tips, s.head)
}

// writeStateFor encodes a prospective tips/head pair into batch without
// touching s.tips/s.head, so callers can stage the would-be state and
// only adopt it in memory after the batch durably commits.
func (s *Store) writeStateFor(batch storage.Batch, tipSet map[types.Hash]struct{}, head types.Hash) error {
	tips := make([]types.Hash, 0, len(tipSet))
	for h := range tipSet {
		tips = append(tips, h)
	}
	raw, err := json.Marshal(dagState{Tips: tips, Head: head})
	if err != nil {
		return err
	}
	batch.Put(keyState, raw)
	return nil
}
