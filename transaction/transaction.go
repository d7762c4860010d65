package transaction

import (
	"fmt"

	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/errors"
)

// Ticker names a token class. Tickers are opaque equality-comparable
// keys; the ledger never parses them.
type Ticker string

// Type discriminates transaction payloads.
type Type int32

const (
	TxTypeMint     Type = 0
	TxTypeTransfer Type = 1
)

func (t Type) String() string {
	switch t {
	case TxTypeMint:
		return "mint"
	case TxTypeTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("unknown(%d)", int32(t))
	}
}

// Content is the signed body of a transaction. Params carries the
// type-specific payload in the canonical binary encoding, so the content
// hash pins the exact bytes of the operation.
type Content struct {
	Sender string `json:"sender"`
	Type   Type   `json:"type"`
	Params []byte `json:"params"`
	Nonce  uint64 `json:"nonce"`
}

// Transaction is a content envelope carrying the sender's hash and
// signature over the canonical content encoding.
type Transaction struct {
	Content     Content       `json:"content"`
	ContentHash crypto.Digest `json:"content_hash"`
	Signature   []byte        `json:"signature"`
}

// MintParams initializes a ticker: Owner receives the entire Supply.
type MintParams struct {
	Ticker Ticker `json:"ticker"`
	Owner  string `json:"owner"`
	Supply uint16 `json:"supply"`
}

// TransferParams moves Amount of Ticker from the content sender to To.
type TransferParams struct {
	Ticker Ticker `json:"ticker"`
	To     string `json:"to"`
	Amount uint16 `json:"amount"`
}

// HashContent computes the digest the sender signs: the hash of the
// canonical content encoding.
func HashContent(hasher crypto.Hasher, c *Content) crypto.Digest {
	return hasher.Sum(EncodeContent(c))
}

// Hash returns the hex content hash, used as the transaction identity in
// logs and events.
func (tx *Transaction) Hash() string {
	return tx.ContentHash.Hex()
}

// Authenticate checks the two signature gates in order: the declared
// content hash must match a recomputation, then the signature must
// verify against the sender address.
func (tx *Transaction) Authenticate(hasher crypto.Hasher, verifier crypto.Verifier) error {
	if HashContent(hasher, &tx.Content) != tx.ContentHash {
		return errors.Newf(errors.CodeInvalidTransactionHash,
			"content hash %s does not match content from %s", tx.ContentHash.Hex(), tx.Content.Sender)
	}
	if !verifier.Verify(tx.ContentHash, tx.Signature, tx.Content.Sender) {
		return errors.Newf(errors.CodeInvalidSignature,
			"signature does not verify against sender %s", tx.Content.Sender)
	}
	return nil
}

// Sign sets the signature over the declared content hash.
func (tx *Transaction) Sign(signer crypto.Signer) *Transaction {
	tx.Signature = signer.Sign(tx.ContentHash)
	return tx
}

// NewMint builds an unsigned mint transaction.
func NewMint(hasher crypto.Hasher, sender string, ticker Ticker, owner string, supply uint16, nonce uint64) *Transaction {
	content := Content{
		Sender: sender,
		Type:   TxTypeMint,
		Params: EncodeMintParams(&MintParams{Ticker: ticker, Owner: owner, Supply: supply}),
		Nonce:  nonce,
	}
	return &Transaction{Content: content, ContentHash: HashContent(hasher, &content)}
}

// NewTransfer builds an unsigned transfer transaction.
func NewTransfer(hasher crypto.Hasher, sender string, ticker Ticker, to string, amount uint16, nonce uint64) *Transaction {
	content := Content{
		Sender: sender,
		Type:   TxTypeTransfer,
		Params: EncodeTransferParams(&TransferParams{Ticker: ticker, To: to, Amount: amount}),
		Nonce:  nonce,
	}
	return &Transaction{Content: content, ContentHash: HashContent(hasher, &content)}
}
