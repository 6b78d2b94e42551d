// Package memstore is an in-memory storage.Engine used by tests. It
// implements the same atomic-batch contract as leveldbstore, letting
// dagstore tests exercise the commit path without touching disk. Its
// Commit never fails, so it does not exercise commit-failure paths.
package memstore

import (
	"sort"
	"sync"

	"github.com/latticenet/lattice/internal/storage"
)

// Store is a simple, mutex-guarded in-memory implementation of
// storage.Engine.
type Store struct {
	mu   sync.Mutex
	data map[string][]byte
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get implements storage.Engine.
func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Has implements storage.Engine.
func (s *Store) Has(key []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[string(key)]
	return ok, nil
}

// NewBatch implements storage.Engine.
func (s *Store) NewBatch() storage.Batch {
	return &batch{store: s}
}

// NewIterator implements storage.Engine.
func (s *Store) NewIterator(prefix []byte) storage.Iterator {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k := range s.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return &memIterator{store: s, keys: keys, pos: -1}
}

// Close implements storage.Engine.
func (s *Store) Close() error { return nil }

type op struct {
	del   bool
	key   []byte
	value []byte
}

type batch struct {
	store *Store
	ops   []op
}

func (b *batch) Put(key, value []byte) {
	b.ops = append(b.ops, op{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

func (b *batch) Delete(key []byte) {
	b.ops = append(b.ops, op{del: true, key: append([]byte(nil), key...)})
}

func (b *batch) Commit() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, o := range b.ops {
		if o.del {
			delete(b.store.data, string(o.key))
			continue
		}
		b.store.data[string(o.key)] = o.value
	}
	return nil
}

type memIterator struct {
	store *Store
	keys  []string
	pos   int
}

func (it *memIterator) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIterator) Key() []byte {
	return []byte(it.keys[it.pos])
}

func (it *memIterator) Value() []byte {
	it.store.mu.Lock()
	defer it.store.mu.Unlock()
	return it.store.data[it.keys[it.pos]]
}

func (it *memIterator) Release()     {}
func (it *memIterator) Error() error { return nil }
