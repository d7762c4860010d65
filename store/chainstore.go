package store

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/mtlnet/mtl/block"
	"github.com/mtlnet/mtl/db"
	"github.com/mtlnet/mtl/jsonx"
	"github.com/mtlnet/mtl/logx"
)

// ChainStore persists the append-only chain of accepted blocks. A block,
// once stored, is never modified or removed; the only mutation is
// appending at number tip+1. The genesis block is seeded when the
// backing database is empty.
type ChainStore struct {
	mu       sync.RWMutex
	provider db.DatabaseProvider
	tip      *block.Block
}

// NewChainStore opens the chain in the given provider, seeding genesis
// when no chain exists yet.
func NewChainStore(provider db.DatabaseProvider) (*ChainStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	store := &ChainStore{provider: provider}
	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load chain: %w", err)
	}
	return store, nil
}

func blockKey(number uint32) []byte {
	key := make([]byte, len(PrefixBlock)+4)
	copy(key, PrefixBlock)
	binary.BigEndian.PutUint32(key[len(PrefixBlock):], number)
	return key
}

func tipKey() []byte {
	return []byte(PrefixChainMeta + ChainMetaKeyTip)
}

// load reads the tip metadata, seeding genesis on an empty database.
func (s *ChainStore) load() error {
	value, err := s.provider.Get(tipKey())
	if err != nil {
		return fmt.Errorf("failed to get tip metadata: %w", err)
	}

	if value == nil {
		genesis := block.Genesis()
		if err := s.writeBlock(genesis); err != nil {
			return fmt.Errorf("failed to seed genesis: %w", err)
		}
		s.tip = genesis
		logx.Info("CHAINSTORE", "Seeded genesis block")
		return nil
	}

	if len(value) != 4 {
		return fmt.Errorf("corrupt tip metadata: %d bytes", len(value))
	}
	tipNumber := binary.BigEndian.Uint32(value)

	tip, err := s.Block(tipNumber)
	if err != nil {
		return err
	}
	if tip == nil {
		return fmt.Errorf("tip metadata points at missing block %d", tipNumber)
	}
	s.tip = tip
	logx.Info("CHAINSTORE", fmt.Sprintf("Loaded chain at tip %d (%s)", tip.Number, tip.BlockHash.Short()))
	return nil
}

// writeBlock stores a block and the tip metadata in one batch.
func (s *ChainStore) writeBlock(b *block.Block) error {
	data, err := jsonx.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal block %d: %w", b.Number, err)
	}

	tipValue := make([]byte, 4)
	binary.BigEndian.PutUint32(tipValue, b.Number)

	batch := s.provider.Batch()
	defer batch.Close()
	batch.Put(blockKey(b.Number), data)
	batch.Put(tipKey(), tipValue)
	return batch.Write()
}

// Tip returns the most recently appended block, never nil once the
// store is open.
func (s *ChainStore) Tip() *block.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tip
}

// Block returns the stored block at the given number, nil when absent.
func (s *ChainStore) Block(number uint32) (*block.Block, error) {
	value, err := s.provider.Get(blockKey(number))
	if err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", number, err)
	}
	if value == nil {
		return nil, nil
	}

	var b block.Block
	if err := jsonx.Unmarshal(value, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block %d: %w", number, err)
	}
	return &b, nil
}

// HasBlock checks existence without decoding.
func (s *ChainStore) HasBlock(number uint32) (bool, error) {
	return s.provider.Has(blockKey(number))
}

// Append stores a block as the new tip. It refuses anything but the
// next number and never overwrites an existing block.
func (s *ChainStore) Append(b *block.Block) error {
	if b == nil {
		return fmt.Errorf("block cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Number != s.tip.Number+1 {
		return fmt.Errorf("cannot append block %d at tip %d", b.Number, s.tip.Number)
	}
	exists, err := s.provider.Has(blockKey(b.Number))
	if err != nil {
		return fmt.Errorf("failed to check block %d: %w", b.Number, err)
	}
	if exists {
		return fmt.Errorf("block %d already exists", b.Number)
	}

	if err := s.writeBlock(b); err != nil {
		return err
	}
	s.tip = b
	logx.Debug("CHAINSTORE", fmt.Sprintf("Appended block %d (%s)", b.Number, b.BlockHash.Short()))
	return nil
}

// Close closes the backing provider.
func (s *ChainStore) Close() error {
	return s.provider.Close()
}
