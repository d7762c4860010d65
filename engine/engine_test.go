package engine

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlnet/mtl/block"
	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/db"
	"github.com/mtlnet/mtl/errors"
	"github.com/mtlnet/mtl/events"
	"github.com/mtlnet/mtl/jsonx"
	"github.com/mtlnet/mtl/ledger"
	"github.com/mtlnet/mtl/store"
	"github.com/mtlnet/mtl/transaction"
)

type testRig struct {
	engine   *Engine
	ledger   *ledger.Ledger
	chain    *store.ChainStore
	provider *db.MemoryProvider
	hasher   crypto.Hasher
	verifier crypto.Verifier
	signer   crypto.Signer
	bus      *events.EventBus
}

func newTestRig(t *testing.T, requireNonce bool) *testRig {
	t.Helper()

	hasher, err := crypto.NewHasher(crypto.HashSchemeSHA256)
	require.NoError(t, err)
	verifier, err := crypto.NewVerifier(crypto.SigSchemeEd25519, "")
	require.NoError(t, err)
	signer, err := crypto.NewSigner(crypto.SigSchemeEd25519)
	require.NoError(t, err)

	provider := db.NewMemoryProvider()
	chain, err := store.NewChainStore(provider)
	require.NoError(t, err)

	ld := ledger.New(hasher, requireNonce)
	bus := events.NewEventBus()

	return &testRig{
		engine:   New(ld, chain, hasher, verifier, bus),
		ledger:   ld,
		chain:    chain,
		provider: provider,
		hasher:   hasher,
		verifier: verifier,
		signer:   signer,
		bus:      bus,
	}
}

func (r *testRig) mint(ticker transaction.Ticker, owner string, supply uint16, nonce uint64) *transaction.Transaction {
	return transaction.NewMint(r.hasher, r.signer.Address(), ticker, owner, supply, nonce).Sign(r.signer)
}

func (r *testRig) transfer(from crypto.Signer, ticker transaction.Ticker, to string, amount uint16, nonce uint64) *transaction.Transaction {
	return transaction.NewTransfer(r.hasher, from.Address(), ticker, to, amount, nonce).Sign(from)
}

func (r *testRig) nextBlock(txs ...*transaction.Transaction) *block.Block {
	tip := r.engine.Tip()
	return block.New(r.hasher, tip.Number+1, tip.BlockHash, txs)
}

func (r *testRig) propose(t *testing.T, txs ...*transaction.Transaction) {
	t.Helper()
	require.NoError(t, r.engine.ProposeBlock(r.nextBlock(txs...)))
}

func newSigner(t *testing.T) crypto.Signer {
	t.Helper()
	signer, err := crypto.NewSigner(crypto.SigSchemeEd25519)
	require.NoError(t, err)
	return signer
}

func TestProposeBlockCommitsMint(t *testing.T) {
	rig := newTestRig(t, false)
	owner := newSigner(t).Address()

	rig.propose(t, rig.mint("GOLD", owner, 50_000, 1))

	assert.True(t, rig.engine.IsInitialized("GOLD"))
	assert.Equal(t, uint16(50_000), rig.engine.Balance("GOLD", owner))
	assert.Equal(t, uint32(1), rig.engine.Tip().Number)
}

func TestProposeBlockRejectsSecondMint(t *testing.T) {
	rig := newTestRig(t, false)
	rig.propose(t, rig.mint("GOLD", "owner", 100, 1))

	before := rig.engine.StateHash()
	err := rig.engine.ProposeBlock(rig.nextBlock(rig.mint("GOLD", "other", 100, 2)))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeTickerAlreadyInitialized))

	assert.Equal(t, uint32(1), rig.engine.Tip().Number, "a rejected block must not advance the tip")
	assert.Equal(t, before, rig.engine.StateHash(), "a rejected block must not touch state")
}

func TestProposeBlockMintThenTransferInOneBlock(t *testing.T) {
	rig := newTestRig(t, false)
	alice := newSigner(t)
	bob := newSigner(t).Address()

	rig.propose(t,
		rig.mint("GOLD", alice.Address(), 100, 1),
		rig.transfer(alice, "GOLD", bob, 50, 1),
	)

	assert.Equal(t, uint16(50), rig.engine.Balance("GOLD", alice.Address()))
	assert.Equal(t, uint16(50), rig.engine.Balance("GOLD", bob))
}

func TestProposeBlockRejectsTransferOnUnknownTicker(t *testing.T) {
	rig := newTestRig(t, false)
	alice := newSigner(t)

	err := rig.engine.ProposeBlock(rig.nextBlock(rig.transfer(alice, "GOLD", "bob", 1, 1)))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeTickerNotInitialized))
	assert.Equal(t, uint32(0), rig.engine.Tip().Number)
}

func TestProposeBlockRejectsInsufficientBalance(t *testing.T) {
	rig := newTestRig(t, false)
	alice := newSigner(t)
	rig.propose(t, rig.mint("GOLD", alice.Address(), 100, 1))

	err := rig.engine.ProposeBlock(rig.nextBlock(rig.transfer(alice, "GOLD", "bob", 101, 1)))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficientBalance))
	assert.Equal(t, uint16(100), rig.engine.Balance("GOLD", alice.Address()))
}

func TestProposeBlockAtomicRejection(t *testing.T) {
	rig := newTestRig(t, false)
	alice := newSigner(t)
	rig.propose(t, rig.mint("GOLD", alice.Address(), 100, 1))
	before := rig.engine.StateHash()

	// First transfer is fine, second carries a corrupted signature. The
	// whole block must fail with no partial effects.
	good := rig.transfer(alice, "GOLD", "bob", 10, 1)
	bad := rig.transfer(alice, "GOLD", "carol", 10, 2)
	bad.Signature[0] ^= 0xff

	err := rig.engine.ProposeBlock(rig.nextBlock(good, bad))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidSignature))

	assert.Equal(t, before, rig.engine.StateHash())
	assert.Equal(t, uint16(100), rig.engine.Balance("GOLD", alice.Address()))
	assert.Equal(t, uint16(0), rig.engine.Balance("GOLD", "bob"))
	assert.Equal(t, uint32(1), rig.engine.Tip().Number)
}

func TestProposeBlockStructuralGates(t *testing.T) {
	rig := newTestRig(t, false)
	rig.propose(t, rig.mint("GOLD", "owner", 100, 1))
	tip := rig.engine.Tip()

	t.Run("tampered block hash", func(t *testing.T) {
		b := rig.nextBlock(rig.mint("SILVER", "owner", 5, 2))
		b.BlockHash[0] ^= 0xff
		err := rig.engine.ProposeBlock(b)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidBlockHash), "got %v", err)
	})

	t.Run("tampered transaction invalidates hash", func(t *testing.T) {
		b := rig.nextBlock(rig.mint("SILVER", "owner", 5, 2))
		b.Transactions[0].Content.Nonce = 99
		err := rig.engine.ProposeBlock(b)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidBlockHash), "got %v", err)
	})

	t.Run("wrong number", func(t *testing.T) {
		b := block.New(rig.hasher, tip.Number+2, tip.BlockHash, nil)
		err := rig.engine.ProposeBlock(b)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidBlockNumber), "got %v", err)
	})

	t.Run("stale number", func(t *testing.T) {
		b := block.New(rig.hasher, tip.Number, tip.BlockHash, nil)
		err := rig.engine.ProposeBlock(b)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidBlockNumber), "got %v", err)
	})

	t.Run("wrong parent", func(t *testing.T) {
		wrongParent := rig.hasher.Sum([]byte("not the tip"))
		b := block.New(rig.hasher, tip.Number+1, wrongParent, nil)
		err := rig.engine.ProposeBlock(b)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidParentHash), "got %v", err)
	})

	t.Run("hash gate wins over number gate", func(t *testing.T) {
		b := block.New(rig.hasher, tip.Number+7, tip.BlockHash, nil)
		b.BlockHash[0] ^= 0xff
		err := rig.engine.ProposeBlock(b)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidBlockHash), "got %v", err)
	})

	assert.Equal(t, uint32(1), rig.engine.Tip().Number, "no structural reject may advance the tip")
}

func TestProposeBlockRejectsNil(t *testing.T) {
	rig := newTestRig(t, false)
	err := rig.engine.ProposeBlock(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDecode))
}

func TestProposeBlockRejectsNilTransaction(t *testing.T) {
	rig := newTestRig(t, false)
	tip := rig.engine.Tip()

	// Hand-built the way a JSON proposal with a null entry decodes;
	// block.New cannot seal such a block.
	b := &block.Block{
		Number:       tip.Number + 1,
		ParentHash:   tip.BlockHash,
		Transactions: []*transaction.Transaction{nil},
	}
	err := rig.engine.ProposeBlock(b)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDecode))
}

func TestProposeBlockNonceMode(t *testing.T) {
	rig := newTestRig(t, true)
	alice := newSigner(t)

	// Sender nonces must start at 1 and step by 1 across blocks.
	rig.propose(t, rig.mint("GOLD", alice.Address(), 100, 1))

	err := rig.engine.ProposeBlock(rig.nextBlock(rig.transfer(alice, "GOLD", "bob", 10, 2)))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidNonce))

	rig.propose(t, rig.transfer(alice, "GOLD", "bob", 10, 1))
	assert.Equal(t, uint64(1), rig.engine.NonceOf(alice.Address()))
	assert.Equal(t, uint64(1), rig.engine.NonceOf(rig.signer.Address()))
}

func TestProposeBlockEmptyBlockAllowed(t *testing.T) {
	rig := newTestRig(t, false)
	before := rig.engine.StateHash()

	rig.propose(t)

	assert.Equal(t, uint32(1), rig.engine.Tip().Number)
	assert.Equal(t, before, rig.engine.StateHash(), "an empty block moves the chain, not the ledger")
}

func TestProposeBlockSelfTransfer(t *testing.T) {
	rig := newTestRig(t, false)
	alice := newSigner(t)
	rig.propose(t, rig.mint("GOLD", alice.Address(), 100, 1))

	rig.propose(t, rig.transfer(alice, "GOLD", alice.Address(), 40, 1))
	assert.Equal(t, uint16(100), rig.engine.Balance("GOLD", alice.Address()))
}

func TestCommitEventsPublishedAfterCommit(t *testing.T) {
	rig := newTestRig(t, false)
	_, ch := rig.bus.Subscribe()
	alice := newSigner(t)

	rig.propose(t,
		rig.mint("GOLD", alice.Address(), 100, 1),
		rig.transfer(alice, "GOLD", "bob", 25, 1),
	)

	committed := waitEvent(t, ch)
	blockEvent, ok := committed.(*events.BlockCommitted)
	require.True(t, ok, "first event must be the block commit, got %T", committed)
	assert.Equal(t, uint32(1), blockEvent.BlockNumber())
	assert.Equal(t, 2, blockEvent.TxCount())
	assert.Equal(t, rig.engine.StateHash().Hex(), blockEvent.StateHash())
	assert.Equal(t, rig.engine.Tip().BlockHash.Hex(), blockEvent.BlockHash())

	first, ok := waitEvent(t, ch).(*events.TransactionApplied)
	require.True(t, ok)
	assert.Equal(t, "mint", first.TxType())

	second, ok := waitEvent(t, ch).(*events.TransactionApplied)
	require.True(t, ok)
	assert.Equal(t, "transfer", second.TxType())
}

func TestRejectionEventCarriesReason(t *testing.T) {
	rig := newTestRig(t, false)
	rig.propose(t, rig.mint("GOLD", "owner", 100, 1))

	_, ch := rig.bus.Subscribe()
	_ = rig.engine.ProposeBlock(rig.nextBlock(rig.mint("GOLD", "owner", 100, 2)))

	event := waitEvent(t, ch)
	rejected, ok := event.(*events.BlockRejected)
	require.True(t, ok, "got %T", event)
	assert.Equal(t, string(errors.CodeTickerAlreadyInitialized), rejected.Reason())
}

func waitEvent(t *testing.T, ch chan events.ChainEvent) events.ChainEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestReplayRebuildsState(t *testing.T) {
	rig := newTestRig(t, false)
	alice := newSigner(t)

	rig.propose(t, rig.mint("GOLD", alice.Address(), 100, 1))
	rig.propose(t, rig.transfer(alice, "GOLD", "bob", 30, 1))
	rig.propose(t, rig.transfer(alice, "GOLD", "carol", 20, 2))
	want := rig.engine.StateHash()

	// A fresh node over the same stored chain must converge on the same
	// state without any live proposals.
	chain, err := store.NewChainStore(rig.provider)
	require.NoError(t, err)
	fresh := ledger.New(rig.hasher, false)
	replayed := New(fresh, chain, rig.hasher, rig.verifier, nil)

	require.NoError(t, replayed.Replay())
	assert.Equal(t, want, replayed.StateHash())
	assert.Equal(t, uint32(3), replayed.Tip().Number)
	assert.Equal(t, uint16(50), replayed.Balance("GOLD", alice.Address()))
}

func TestReplayRejectsTamperedBlock(t *testing.T) {
	rig := newTestRig(t, false)
	alice := newSigner(t)
	rig.propose(t, rig.mint("GOLD", alice.Address(), 100, 1))
	rig.propose(t, rig.transfer(alice, "GOLD", "bob", 30, 1))

	// Rewrite stored block 1 with a different payload while keeping the
	// declared hash, as a corrupted disk would.
	stored, err := rig.chain.Block(1)
	require.NoError(t, err)
	stored.Transactions = nil // payload no longer matches BlockHash
	raw, err := jsonx.Marshal(stored)
	require.NoError(t, err)
	key := make([]byte, len(store.PrefixBlock)+4)
	copy(key, store.PrefixBlock)
	binary.BigEndian.PutUint32(key[len(store.PrefixBlock):], 1)
	require.NoError(t, rig.provider.Put(key, raw))

	chain, err := store.NewChainStore(rig.provider)
	require.NoError(t, err)
	replayed := New(ledger.New(rig.hasher, false), chain, rig.hasher, rig.verifier, nil)

	err = replayed.Replay()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidBlockHash))
}

func TestReplayEmptyChain(t *testing.T) {
	rig := newTestRig(t, false)
	require.NoError(t, rig.engine.Replay())
	assert.Equal(t, uint32(0), rig.engine.Tip().Number)
}
