package block

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

func signedTransfer(t *testing.T, hasher crypto.Hasher, to string, amount uint16, nonce uint64) *transaction.Transaction {
	t.Helper()
	signer, err := crypto.NewSigner(crypto.SigSchemeEd25519)
	require.NoError(t, err)
	return transaction.NewTransfer(hasher, signer.Address(), "GOLD", to, amount, nonce).Sign(signer)
}

func TestGenesisShape(t *testing.T) {
	g := Genesis()
	assert.Equal(t, uint32(0), g.Number)
	assert.True(t, g.ParentHash.IsZero())
	assert.True(t, g.BlockHash.IsZero())
	assert.Empty(t, g.Transactions)

	// Genesis is scheme independent: its digests are fixed, not computed.
	assert.Equal(t, Genesis(), Genesis())
}

func TestNewSealsBlockHash(t *testing.T) {
	hasher := testHasher(t)
	parent := hasher.Sum([]byte("parent"))

	b := New(hasher, 1, parent, []*transaction.Transaction{signedTransfer(t, hasher, "a", 1, 1)})
	assert.Equal(t, b.ComputeHash(hasher), b.BlockHash)
	assert.False(t, b.BlockHash.IsZero())
}

func TestComputeHashCommitsToParentAndTransactions(t *testing.T) {
	hasher := testHasher(t)
	tx := signedTransfer(t, hasher, "a", 1, 1)

	base := New(hasher, 1, hasher.Sum([]byte("parent")), []*transaction.Transaction{tx})

	differentParent := New(hasher, 1, hasher.Sum([]byte("other parent")), []*transaction.Transaction{tx})
	assert.NotEqual(t, base.BlockHash, differentParent.BlockHash)

	differentTxs := New(hasher, 1, hasher.Sum([]byte("parent")), nil)
	assert.NotEqual(t, base.BlockHash, differentTxs.BlockHash)
}

func TestComputeHashIgnoresNumber(t *testing.T) {
	hasher := testHasher(t)
	tx := signedTransfer(t, hasher, "a", 1, 1)
	parent := hasher.Sum([]byte("parent"))

	atOne := New(hasher, 1, parent, []*transaction.Transaction{tx})
	atNine := New(hasher, 9, parent, []*transaction.Transaction{tx})
	assert.Equal(t, atOne.BlockHash, atNine.BlockHash,
		"the number is positional and must not feed the hash")
}

func TestComputeHashDependsOnTransactionOrder(t *testing.T) {
	hasher := testHasher(t)
	first := signedTransfer(t, hasher, "a", 1, 1)
	second := signedTransfer(t, hasher, "b", 2, 1)
	parent := hasher.Sum([]byte("parent"))

	forward := New(hasher, 1, parent, []*transaction.Transaction{first, second})
	reversed := New(hasher, 1, parent, []*transaction.Transaction{second, first})
	assert.NotEqual(t, forward.BlockHash, reversed.BlockHash)
}

func TestTransactionSequenceRoundTrip(t *testing.T) {
	hasher := testHasher(t)
	txs := []*transaction.Transaction{
		signedTransfer(t, hasher, "a", 1, 1),
		signedTransfer(t, hasher, "b", 2, 1),
	}

	decoded, err := DecodeTransactions(EncodeTransactions(txs))
	require.NoError(t, err)
	assert.Equal(t, txs, decoded)

	empty, err := DecodeTransactions(EncodeTransactions(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDecodeTransactionsRejectsCorruptSequence(t *testing.T) {
	hasher := testHasher(t)
	encoded := EncodeTransactions([]*transaction.Transaction{signedTransfer(t, hasher, "a", 1, 1)})

	_, err := DecodeTransactions(encoded[:len(encoded)-1])
	assert.True(t, errors.HasCode(err, errors.CodeDecode), "truncation: %v", err)

	_, err = DecodeTransactions(append(append([]byte{}, encoded...), 0x01))
	assert.True(t, errors.HasCode(err, errors.CodeDecode), "trailing bytes: %v", err)

	badVersion := append([]byte{}, encoded...)
	badVersion[0] = 0x7f
	_, err = DecodeTransactions(badVersion)
	assert.True(t, errors.HasCode(err, errors.CodeDecode), "bad version: %v", err)

	// Count far past what the payload can hold.
	impossible := append([]byte{}, encoded...)
	impossible[1], impossible[2], impossible[3], impossible[4] = 0xff, 0xff, 0xff, 0xff
	_, err = DecodeTransactions(impossible)
	assert.True(t, errors.HasCode(err, errors.CodeDecode), "impossible count: %v", err)
}
