package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/mtlnet/mtl/block"
	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/errors"
	"github.com/mtlnet/mtl/events"
	"github.com/mtlnet/mtl/ledger"
	"github.com/mtlnet/mtl/logx"
	"github.com/mtlnet/mtl/monitoring"
	"github.com/mtlnet/mtl/store"
	"github.com/mtlnet/mtl/transaction"
)

// Engine owns the ledger and the chain store and is the only component
// that mutates them. Block application is serialized: one proposal runs
// the full validate-apply-commit cycle at a time, while reads keep
// serving the last committed state.
type Engine struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	chain    *store.ChainStore
	hasher   crypto.Hasher
	verifier crypto.Verifier
	bus      *events.EventBus
}

// New wires an engine over its collaborators. bus may be nil when no
// one needs event delivery.
func New(ledger *ledger.Ledger, chain *store.ChainStore, hasher crypto.Hasher, verifier crypto.Verifier, bus *events.EventBus) *Engine {
	return &Engine{
		ledger:   ledger,
		chain:    chain,
		hasher:   hasher,
		verifier: verifier,
		bus:      bus,
	}
}

// ProposeBlock drives a proposed block through every gate and commits it
// atomically. The gates run in a fixed order: block hash recomputation,
// block number against the tip, parent hash against the tip, then per
// transaction authenticate, validate, execute against a working view.
// The first failure rejects the whole block and the ledger keeps its
// pre-block state.
func (e *Engine) ProposeBlock(b *block.Block) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b == nil {
		return errors.New(errors.CodeDecode, "block cannot be nil")
	}

	start := time.Now()
	if err := e.checkStructure(b, e.chain.Tip()); err != nil {
		e.reject(b, err)
		return err
	}

	view := e.ledger.NewView()
	if err := e.applyTransactions(view, b); err != nil {
		e.reject(b, err)
		return err
	}

	if err := e.chain.Append(b); err != nil {
		err = errors.Newf(errors.CodeInternal, "failed to append block %d: %v", b.Number, err)
		e.reject(b, err)
		return err
	}
	e.ledger.Commit(view)

	e.announceCommit(b, time.Since(start))
	return nil
}

// checkStructure runs the block-level gates against the given tip. The
// nil scan comes first: hashing dereferences every transaction, and a
// JSON proposal can carry null entries.
func (e *Engine) checkStructure(b *block.Block, tip *block.Block) error {
	for i, tx := range b.Transactions {
		if tx == nil {
			return errors.Newf(errors.CodeDecode, "block %d carries a nil transaction at index %d", b.Number, i)
		}
	}
	if computed := b.ComputeHash(e.hasher); computed != b.BlockHash {
		return errors.Newf(errors.CodeInvalidBlockHash,
			"block %d declares hash %s, computed %s", b.Number, b.BlockHash.Hex(), computed.Hex())
	}
	if expected := tip.Number + 1; b.Number != expected {
		return errors.Newf(errors.CodeInvalidBlockNumber,
			"expected block number %d, got %d", expected, b.Number)
	}
	if b.ParentHash != tip.BlockHash {
		return errors.Newf(errors.CodeInvalidParentHash,
			"block %d parent hash %s does not match tip hash %s", b.Number, b.ParentHash.Hex(), tip.BlockHash.Hex())
	}
	return nil
}

// applyTransactions stages every transaction of b on the view, in block
// order, failing on the first violation.
func (e *Engine) applyTransactions(view *ledger.View, b *block.Block) error {
	for i, tx := range b.Transactions {
		if err := tx.Authenticate(e.hasher, e.verifier); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
		if err := view.CheckTransaction(&tx.Content); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
		if err := view.ApplyTransaction(&tx.Content); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
	}
	return nil
}

func (e *Engine) announceCommit(b *block.Block, elapsed time.Duration) {
	logx.Info("ENGINE", fmt.Sprintf("Committed block %d (%s) with %d txs in %s",
		b.Number, b.BlockHash.Short(), len(b.Transactions), elapsed))

	monitoring.SetBlockHeight(b.Number)
	monitoring.IncreaseCommittedBlockCount()
	monitoring.IncreaseAppliedTxCount(len(b.Transactions))
	monitoring.RecordTxInBlock(len(b.Transactions))
	monitoring.RecordBlockApplyDuration(elapsed)

	if e.bus == nil {
		return
	}
	stateHash := e.ledger.StateHash().Hex()
	e.bus.Publish(events.NewBlockCommitted(b.Number, b.BlockHash.Hex(), stateHash, len(b.Transactions)))
	for _, tx := range b.Transactions {
		e.bus.Publish(events.NewTransactionApplied(b.Number, tx.Hash(), tx.Content.Type.String()))
	}
}

func (e *Engine) reject(b *block.Block, err error) {
	code := errors.CodeOf(err)
	logx.Warn("ENGINE", fmt.Sprintf("Rejected block %d: %v", b.Number, err))
	monitoring.RecordRejectedBlock(string(code))
	if e.bus != nil {
		e.bus.Publish(events.NewBlockRejected(b.Number, string(code), err.Error()))
	}
}

// Replay rebuilds the ledger by driving every stored block after
// genesis back through the same gates a live proposal passes. A failure
// means the store is corrupt or was written by an incompatible node.
func (e *Engine) Replay() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tipNumber := e.chain.Tip().Number
	parent, err := e.chain.Block(0)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("chain store has no genesis block")
	}

	for number := uint32(1); number <= tipNumber; number++ {
		b, err := e.chain.Block(number)
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("chain store missing block %d at tip %d", number, tipNumber)
		}
		if err := e.checkStructure(b, parent); err != nil {
			return fmt.Errorf("replay block %d: %w", number, err)
		}
		view := e.ledger.NewView()
		if err := e.applyTransactions(view, b); err != nil {
			return fmt.Errorf("replay block %d: %w", number, err)
		}
		e.ledger.Commit(view)
		parent = b
	}

	if tipNumber > 0 {
		logx.Info("ENGINE", fmt.Sprintf("Replayed %d blocks, state hash %s",
			tipNumber, e.ledger.StateHash().Short()))
	}
	monitoring.SetBlockHeight(tipNumber)
	return nil
}

// Balance reads the committed balance for (ticker, holder).
func (e *Engine) Balance(ticker transaction.Ticker, holder string) uint16 {
	return e.ledger.Balance(ticker, holder)
}

// IsInitialized reports whether a mint for ticker has been committed.
func (e *Engine) IsInitialized(ticker transaction.Ticker) bool {
	return e.ledger.IsInitialized(ticker)
}

// NonceOf reads the last committed nonce for sender.
func (e *Engine) NonceOf(sender string) uint64 {
	return e.ledger.NonceOf(sender)
}

// StateHash digests the committed ledger state.
func (e *Engine) StateHash() crypto.Digest {
	return e.ledger.StateHash()
}

// Tip returns the current chain tip.
func (e *Engine) Tip() *block.Block {
	return e.chain.Tip()
}

// Block returns the stored block at number, nil when absent.
func (e *Engine) Block(number uint32) (*block.Block, error) {
	return e.chain.Block(number)
}
