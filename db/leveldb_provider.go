package db

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBProvider implements DatabaseProvider over a LevelDB directory.
// Keys are stored flat; prefix scans ride on LevelDB's sorted key order.
type LevelDBProvider struct {
	once sync.Once
	db   *leveldb.DB
}

// NewLevelDBProvider opens or creates the LevelDB database at directory
func NewLevelDBProvider(directory string) (DatabaseProvider, error) {
	db, err := leveldb.OpenFile(directory, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", directory, err)
	}
	return &LevelDBProvider{db: db}, nil
}

// Get returns nil for a missing key instead of leveldb.ErrNotFound
func (p *LevelDBProvider) Get(key []byte) ([]byte, error) {
	value, err := p.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (p *LevelDBProvider) Put(key, value []byte) error {
	return p.db.Put(key, value, nil)
}

func (p *LevelDBProvider) Delete(key []byte) error {
	return p.db.Delete(key, nil)
}

func (p *LevelDBProvider) Has(key []byte) (bool, error) {
	return p.db.Has(key, nil)
}

// Close closes the database files
func (p *LevelDBProvider) Close() error {
	// the provider is shared, guard against double close
	var err error
	p.once.Do(func() {
		err = p.db.Close()
	})
	return err
}

// Batch stages writes in a native leveldb.Batch
func (p *LevelDBProvider) Batch() DatabaseBatch {
	return &levelBatch{db: p.db, batch: new(leveldb.Batch)}
}

func (p *LevelDBProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	iter := p.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if !callback(iter.Key(), iter.Value()) {
			break
		}
	}
	return iter.Error()
}

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

func (b *levelBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

// Write flushes the batch in a single leveldb write
func (b *levelBatch) Write() error {
	return b.db.Write(b.batch, nil)
}

func (b *levelBatch) Reset() {
	b.batch.Reset()
}

// Close drops anything still staged
func (b *levelBatch) Close() {
	b.batch.Reset()
}
