// Package leveldbstore is the concrete, pluggable storage.Engine
// backing a latticed node, grounded on the wider example pack's use of
// goleveldb as the embedded storage engine beneath an abstract KV
// interface (the teacher's own concrete accessor is not in the
// retrieved file set, but its DataAccessor interface - put/get/has/
// delete/cursor - maps directly onto goleveldb's DB/Batch/Iterator
// types, which is what this package wires).
package leveldbstore

import (
	"github.com/syndtr/goleveldb/leveldb"
	ldbiterator "github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/latticenet/lattice/internal/storage"
)

// Store is a storage.Engine backed by a goleveldb database.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) a leveldb database at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Get implements storage.Engine.
func (s *Store) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, storage.ErrNotFound
	}
	return v, err
}

// Has implements storage.Engine.
func (s *Store) Has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

// NewBatch implements storage.Engine.
func (s *Store) NewBatch() storage.Batch {
	return &batch{db: s.db, b: new(leveldb.Batch)}
}

// NewIterator implements storage.Engine.
func (s *Store) NewIterator(prefix []byte) storage.Iterator {
	return &iterator{it: s.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

// Close implements storage.Engine.
func (s *Store) Close() error {
	return s.db.Close()
}

type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batch) Put(key, value []byte) { b.b.Put(key, value) }
func (b *batch) Delete(key []byte)     { b.b.Delete(key) }
func (b *batch) Commit() error         { return b.db.Write(b.b, nil) }

type iterator struct {
	it ldbiterator.Iterator
}

func (i *iterator) Next() bool      { return i.it.Next() }
func (i *iterator) Key() []byte     { return append([]byte(nil), i.it.Key()...) }
func (i *iterator) Value() []byte   { return append([]byte(nil), i.it.Value()...) }
func (i *iterator) Release()        { i.it.Release() }
func (i *iterator) Error() error    { return i.it.Error() }
