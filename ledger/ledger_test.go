package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/errors"
	"github.com/mtlnet/mtl/transaction"
)

func testHasher(t *testing.T) crypto.Hasher {
	t.Helper()
	hasher, err := crypto.NewHasher(crypto.HashSchemeSHA256)
	require.NoError(t, err)
	return hasher
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(testHasher(t), false)
}

func mintContent(t *testing.T, sender string, ticker transaction.Ticker, owner string, supply uint16, nonce uint64) *transaction.Content {
	t.Helper()
	return &transaction.NewMint(testHasher(t), sender, ticker, owner, supply, nonce).Content
}

func transferContent(t *testing.T, sender string, ticker transaction.Ticker, to string, amount uint16, nonce uint64) *transaction.Content {
	t.Helper()
	return &transaction.NewTransfer(testHasher(t), sender, ticker, to, amount, nonce).Content
}

// applyAndCommit stages one transaction on a fresh view and commits it,
// failing the test on any violation.
func applyAndCommit(t *testing.T, l *Ledger, c *transaction.Content) {
	t.Helper()
	view := l.NewView()
	require.NoError(t, view.ApplyTransaction(c))
	l.Commit(view)
}

func TestMintInitializesTicker(t *testing.T) {
	l := newTestLedger(t)
	require.False(t, l.IsInitialized("GOLD"))

	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "owner", 50_000, 1))

	assert.True(t, l.IsInitialized("GOLD"))
	assert.Equal(t, uint16(50_000), l.Balance("GOLD", "owner"))
	assert.Equal(t, uint16(0), l.Balance("GOLD", "minter"), "minting assigns supply to the owner only")
}

func TestMintTwiceRejected(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "owner", 100, 1))

	view := l.NewView()
	err := view.ApplyTransaction(mintContent(t, "minter", "GOLD", "other", 5, 2))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeTickerAlreadyInitialized))
	assert.Equal(t, uint16(100), l.Balance("GOLD", "owner"), "failed mint must not shift balances")
}

func TestMintTwiceRejectedWithinOneView(t *testing.T) {
	l := newTestLedger(t)

	view := l.NewView()
	require.NoError(t, view.ApplyTransaction(mintContent(t, "minter", "GOLD", "owner", 100, 1)))

	err := view.ApplyTransaction(mintContent(t, "minter", "GOLD", "owner", 100, 2))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeTickerAlreadyInitialized),
		"a mint staged in the same view already initializes the ticker")
}

func TestTransferMovesBalance(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))
	applyAndCommit(t, l, transferContent(t, "alice", "GOLD", "bob", 50, 1))

	assert.Equal(t, uint16(50), l.Balance("GOLD", "alice"))
	assert.Equal(t, uint16(50), l.Balance("GOLD", "bob"))
}

func TestTransferUninitializedTickerRejected(t *testing.T) {
	l := newTestLedger(t)

	view := l.NewView()
	err := view.ApplyTransaction(transferContent(t, "alice", "GOLD", "bob", 1, 1))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeTickerNotInitialized))
}

func TestTransferInsufficientBalanceRejected(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))

	view := l.NewView()
	err := view.ApplyTransaction(transferContent(t, "alice", "GOLD", "bob", 101, 1))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficientBalance))
	assert.Equal(t, uint16(100), l.Balance("GOLD", "alice"))
	assert.Equal(t, uint16(0), l.Balance("GOLD", "bob"))
}

func TestTransferExactBalanceAllowed(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))
	applyAndCommit(t, l, transferContent(t, "alice", "GOLD", "bob", 100, 1))

	assert.Equal(t, uint16(0), l.Balance("GOLD", "alice"))
	assert.Equal(t, uint16(100), l.Balance("GOLD", "bob"))
}

func TestTransferZeroAmountAllowed(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))
	applyAndCommit(t, l, transferContent(t, "broke", "GOLD", "bob", 0, 1))

	assert.Equal(t, uint16(0), l.Balance("GOLD", "broke"))
	assert.Equal(t, uint16(0), l.Balance("GOLD", "bob"))
}

func TestSelfTransferIsNoOp(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))
	before := l.StateHash()

	applyAndCommit(t, l, transferContent(t, "alice", "GOLD", "alice", 40, 1))

	assert.Equal(t, uint16(100), l.Balance("GOLD", "alice"),
		"a self transfer nets to zero and must not double apply")
	assert.Equal(t, before, l.StateHash())
}

func TestSelfTransferStillNeedsFunds(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))

	view := l.NewView()
	err := view.ApplyTransaction(transferContent(t, "alice", "GOLD", "alice", 101, 1))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInsufficientBalance))
}

func TestUnknownTransactionTypeRejected(t *testing.T) {
	l := newTestLedger(t)

	view := l.NewView()
	err := view.ApplyTransaction(&transaction.Content{Sender: "alice", Type: transaction.Type(42), Nonce: 1})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidTransactionType))
}

func TestMalformedParamsRejected(t *testing.T) {
	l := newTestLedger(t)

	view := l.NewView()
	err := view.ApplyTransaction(&transaction.Content{Sender: "alice", Type: transaction.TxTypeMint, Params: []byte{0xff}, Nonce: 1})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDecode))
}

func TestViewIsolation(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))

	view := l.NewView()
	require.NoError(t, view.ApplyTransaction(transferContent(t, "alice", "GOLD", "bob", 30, 1)))

	// Staged but uncommitted: the view sees the move, the ledger does not.
	assert.Equal(t, uint16(70), view.Balance("GOLD", "alice"))
	assert.Equal(t, uint16(30), view.Balance("GOLD", "bob"))
	assert.Equal(t, uint16(100), l.Balance("GOLD", "alice"))
	assert.Equal(t, uint16(0), l.Balance("GOLD", "bob"))

	l.Commit(view)
	assert.Equal(t, uint16(70), l.Balance("GOLD", "alice"))
	assert.Equal(t, uint16(30), l.Balance("GOLD", "bob"))
}

func TestDiscardedViewLeavesNoTrace(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))
	before := l.StateHash()

	view := l.NewView()
	require.NoError(t, view.ApplyTransaction(transferContent(t, "alice", "GOLD", "bob", 30, 1)))
	require.NoError(t, view.ApplyTransaction(mintContent(t, "minter", "SILVER", "carol", 10, 2)))
	// view dropped without commit

	assert.Equal(t, before, l.StateHash())
	assert.False(t, l.IsInitialized("SILVER"))
}

func TestViewChainsAcrossTransactions(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))

	// bob receives and immediately spends within one view.
	view := l.NewView()
	require.NoError(t, view.ApplyTransaction(transferContent(t, "alice", "GOLD", "bob", 60, 1)))
	require.NoError(t, view.ApplyTransaction(transferContent(t, "bob", "GOLD", "carol", 45, 1)))
	l.Commit(view)

	assert.Equal(t, uint16(40), l.Balance("GOLD", "alice"))
	assert.Equal(t, uint16(15), l.Balance("GOLD", "bob"))
	assert.Equal(t, uint16(45), l.Balance("GOLD", "carol"))
}

func TestIndependentTickers(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))
	applyAndCommit(t, l, mintContent(t, "minter", "SILVER", "alice", 7, 2))
	applyAndCommit(t, l, transferContent(t, "alice", "GOLD", "bob", 100, 1))

	assert.Equal(t, uint16(0), l.Balance("GOLD", "alice"))
	assert.Equal(t, uint16(7), l.Balance("SILVER", "alice"), "tickers must not share balance cells")
	assert.Equal(t, uint16(0), l.Balance("SILVER", "bob"))
}

func TestNonceEnforcement(t *testing.T) {
	l := New(testHasher(t), true)
	require.True(t, l.RequireNonce())

	// First transaction from a sender must carry nonce 1.
	view := l.NewView()
	err := view.ApplyTransaction(mintContent(t, "minter", "GOLD", "alice", 100, 5))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidNonce))

	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))
	assert.Equal(t, uint64(1), l.NonceOf("minter"))

	// Replayed nonce is rejected, the successor is accepted.
	view = l.NewView()
	err = view.ApplyTransaction(mintContent(t, "minter", "SILVER", "alice", 5, 1))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidNonce))

	applyAndCommit(t, l, mintContent(t, "minter", "SILVER", "alice", 5, 2))
	assert.Equal(t, uint64(2), l.NonceOf("minter"))

	// Nonces advance per sender, not globally.
	applyAndCommit(t, l, transferContent(t, "alice", "GOLD", "bob", 10, 1))
	assert.Equal(t, uint64(1), l.NonceOf("alice"))
}

func TestNonceChainsWithinOneView(t *testing.T) {
	l := New(testHasher(t), true)

	view := l.NewView()
	require.NoError(t, view.ApplyTransaction(mintContent(t, "minter", "GOLD", "minter", 100, 1)))
	require.NoError(t, view.ApplyTransaction(transferContent(t, "minter", "GOLD", "bob", 10, 2)))

	err := view.ApplyTransaction(transferContent(t, "minter", "GOLD", "bob", 10, 2))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidNonce))
}

func TestSelfTransferStillAdvancesNonce(t *testing.T) {
	l := New(testHasher(t), true)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 1))

	applyAndCommit(t, l, transferContent(t, "alice", "GOLD", "alice", 5, 1))
	assert.Equal(t, uint64(1), l.NonceOf("alice"))
	assert.Equal(t, uint16(100), l.Balance("GOLD", "alice"))
}

func TestNoncesIgnoredWhenDisabled(t *testing.T) {
	l := newTestLedger(t)
	applyAndCommit(t, l, mintContent(t, "minter", "GOLD", "alice", 100, 77))

	assert.Equal(t, uint64(0), l.NonceOf("minter"), "nonces are not tracked when enforcement is off")
}
