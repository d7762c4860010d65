package block

import (
	"encoding/binary"

	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/errors"
	"github.com/mtlnet/mtl/transaction"
)

// Block is an ordered batch of transactions chained to its parent by
// hash. BlockHash commits to the parent hash and the exact transaction
// bytes; the number is positional and checked against the tip instead.
type Block struct {
	Number       uint32                     `json:"number"`
	ParentHash   crypto.Digest              `json:"parent_hash"`
	Transactions []*transaction.Transaction `json:"transactions"`
	BlockHash    crypto.Digest              `json:"block_hash"`
}

const txSeqVersion byte = 0x05

// Genesis returns the fixed block every chain starts from: number 0,
// zero parent hash, zero block hash, no transactions. It is identical
// for every node regardless of hash scheme.
func Genesis() *Block {
	return &Block{Number: 0}
}

// New assembles a block at the given position and seals it with its
// computed hash.
func New(hasher crypto.Hasher, number uint32, parentHash crypto.Digest, txs []*transaction.Transaction) *Block {
	b := &Block{Number: number, ParentHash: parentHash, Transactions: txs}
	b.BlockHash = b.ComputeHash(hasher)
	return b
}

// ComputeHash digests the parent hash followed by the encoded
// transaction sequence. Parent-first ordering is part of the wire
// contract.
func (b *Block) ComputeHash(hasher crypto.Hasher) crypto.Digest {
	encoded := EncodeTransactions(b.Transactions)
	payload := make([]byte, 0, crypto.DigestSize+len(encoded))
	payload = append(payload, b.ParentHash[:]...)
	payload = append(payload, encoded...)
	return hasher.Sum(payload)
}

// EncodeTransactions renders the ordered transaction sequence in
// canonical form: a version byte, the count, then each transaction
// length-prefixed.
func EncodeTransactions(txs []*transaction.Transaction) []byte {
	buf := []byte{txSeqVersion}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(txs)))
	for _, tx := range txs {
		encoded := tx.Encode()
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(encoded)))
		buf = append(buf, encoded...)
	}
	return buf
}

// DecodeTransactions parses a canonical transaction sequence.
func DecodeTransactions(data []byte) ([]*transaction.Transaction, error) {
	r := seqReader{data: data}
	if err := r.version(txSeqVersion); err != nil {
		return nil, err
	}
	count, err := r.uint32()
	if err != nil {
		return nil, err
	}
	// Each entry carries at least a length prefix, so a count past this
	// bound cannot be satisfied by the payload.
	if int(count) > len(data)/4 {
		return nil, errors.Newf(errors.CodeDecode, "transaction count %d exceeds payload", count)
	}
	txs := make([]*transaction.Transaction, 0, count)
	for i := uint32(0); i < count; i++ {
		size, err := r.uint32()
		if err != nil {
			return nil, err
		}
		raw, err := r.take(int(size))
		if err != nil {
			return nil, err
		}
		tx, err := transaction.Decode(raw)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return txs, nil
}

// seqReader walks the sequence encoding with strict bounds checks.
type seqReader struct {
	data []byte
	off  int
}

func (r *seqReader) version(want byte) error {
	raw, err := r.take(1)
	if err != nil {
		return errors.New(errors.CodeDecode, "transaction sequence encoding is empty")
	}
	if raw[0] != want {
		return errors.Newf(errors.CodeDecode, "unsupported transaction sequence version %#x", raw[0])
	}
	return nil
}

func (r *seqReader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, errors.Newf(errors.CodeDecode, "truncated transaction sequence: need %d bytes at offset %d of %d", n, r.off, len(r.data))
	}
	out := r.data[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *seqReader) uint32() (uint32, error) {
	raw, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

func (r *seqReader) done() error {
	if r.off != len(r.data) {
		return errors.Newf(errors.CodeDecode, "trailing %d bytes after transaction sequence", len(r.data)-r.off)
	}
	return nil
}
