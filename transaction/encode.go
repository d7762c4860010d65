package transaction

import (
	"encoding/binary"

	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/errors"
)

// Canonical encoding: a leading version byte per structure, big-endian
// fixed-width integers, and length-prefixed variable fields. Signing and
// block hashing both consume these exact bytes, so any change here is a
// chain-splitting change.
const (
	contentVersion        byte = 0x01
	mintParamsVersion     byte = 0x02
	transferParamsVersion byte = 0x03
	txVersion             byte = 0x04
)

// EncodeContent renders the signed body of a transaction.
func EncodeContent(c *Content) []byte {
	buf := make([]byte, 0, 1+2+len(c.Sender)+4+8+4+len(c.Params))
	buf = append(buf, contentVersion)
	buf = appendBytes16(buf, []byte(c.Sender))
	buf = binary.BigEndian.AppendUint32(buf, uint32(c.Type))
	buf = binary.BigEndian.AppendUint64(buf, c.Nonce)
	buf = appendBytes32(buf, c.Params)
	return buf
}

// DecodeContent parses the canonical content encoding. Truncated input
// and trailing bytes are both decode errors.
func DecodeContent(data []byte) (*Content, error) {
	r := byteReader{data: data}
	if err := r.version(contentVersion, "content"); err != nil {
		return nil, err
	}
	sender, err := r.bytes16()
	if err != nil {
		return nil, err
	}
	txType, err := r.uint32()
	if err != nil {
		return nil, err
	}
	nonce, err := r.uint64()
	if err != nil {
		return nil, err
	}
	params, err := r.bytes32()
	if err != nil {
		return nil, err
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return &Content{Sender: string(sender), Type: Type(txType), Params: params, Nonce: nonce}, nil
}

// EncodeMintParams renders mint parameters for embedding in Content.Params.
func EncodeMintParams(p *MintParams) []byte {
	buf := make([]byte, 0, 1+2+len(p.Ticker)+2+len(p.Owner)+2)
	buf = append(buf, mintParamsVersion)
	buf = appendBytes16(buf, []byte(p.Ticker))
	buf = appendBytes16(buf, []byte(p.Owner))
	buf = binary.BigEndian.AppendUint16(buf, p.Supply)
	return buf
}

func DecodeMintParams(data []byte) (*MintParams, error) {
	r := byteReader{data: data}
	if err := r.version(mintParamsVersion, "mint params"); err != nil {
		return nil, err
	}
	ticker, err := r.bytes16()
	if err != nil {
		return nil, err
	}
	owner, err := r.bytes16()
	if err != nil {
		return nil, err
	}
	supply, err := r.uint16()
	if err != nil {
		return nil, err
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return &MintParams{Ticker: Ticker(ticker), Owner: string(owner), Supply: supply}, nil
}

// EncodeTransferParams renders transfer parameters for embedding in
// Content.Params.
func EncodeTransferParams(p *TransferParams) []byte {
	buf := make([]byte, 0, 1+2+len(p.Ticker)+2+len(p.To)+2)
	buf = append(buf, transferParamsVersion)
	buf = appendBytes16(buf, []byte(p.Ticker))
	buf = appendBytes16(buf, []byte(p.To))
	buf = binary.BigEndian.AppendUint16(buf, p.Amount)
	return buf
}

func DecodeTransferParams(data []byte) (*TransferParams, error) {
	r := byteReader{data: data}
	if err := r.version(transferParamsVersion, "transfer params"); err != nil {
		return nil, err
	}
	ticker, err := r.bytes16()
	if err != nil {
		return nil, err
	}
	to, err := r.bytes16()
	if err != nil {
		return nil, err
	}
	amount, err := r.uint16()
	if err != nil {
		return nil, err
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return &TransferParams{Ticker: Ticker(ticker), To: string(to), Amount: amount}, nil
}

// Encode renders the full signed transaction, the form block hashing
// consumes.
func (tx *Transaction) Encode() []byte {
	content := EncodeContent(&tx.Content)
	buf := make([]byte, 0, 1+4+len(content)+crypto.DigestSize+2+len(tx.Signature))
	buf = append(buf, txVersion)
	buf = appendBytes32(buf, content)
	buf = append(buf, tx.ContentHash[:]...)
	buf = appendBytes16(buf, tx.Signature)
	return buf
}

// Decode parses a full signed transaction.
func Decode(data []byte) (*Transaction, error) {
	r := byteReader{data: data}
	if err := r.version(txVersion, "transaction"); err != nil {
		return nil, err
	}
	contentRaw, err := r.bytes32()
	if err != nil {
		return nil, err
	}
	content, err := DecodeContent(contentRaw)
	if err != nil {
		return nil, err
	}
	hashRaw, err := r.take(crypto.DigestSize)
	if err != nil {
		return nil, err
	}
	signature, err := r.bytes16()
	if err != nil {
		return nil, err
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	contentHash, err := crypto.DigestFromBytes(hashRaw)
	if err != nil {
		return nil, errors.Newf(errors.CodeDecode, "transaction content hash: %v", err)
	}
	return &Transaction{Content: *content, ContentHash: contentHash, Signature: signature}, nil
}

func appendBytes16(buf, data []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(data)))
	return append(buf, data...)
}

func appendBytes32(buf, data []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

// byteReader walks a canonical encoding with strict bounds checks.
type byteReader struct {
	data []byte
	off  int
}

func (r *byteReader) version(want byte, what string) error {
	b, err := r.take(1)
	if err != nil {
		return errors.Newf(errors.CodeDecode, "%s encoding is empty", what)
	}
	if b[0] != want {
		return errors.Newf(errors.CodeDecode, "unsupported %s version %#x", what, b[0])
	}
	return nil
}

func (r *byteReader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, errors.Newf(errors.CodeDecode, "truncated encoding: need %d bytes at offset %d of %d", n, r.off, len(r.data))
	}
	out := r.data[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *byteReader) uint16() (uint16, error) {
	raw, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw), nil
}

func (r *byteReader) uint32() (uint32, error) {
	raw, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

func (r *byteReader) uint64() (uint64, error) {
	raw, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (r *byteReader) bytes16() ([]byte, error) {
	n, err := r.uint16()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

func (r *byteReader) bytes32() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

func (r *byteReader) done() error {
	if r.off != len(r.data) {
		return errors.Newf(errors.CodeDecode, "trailing %d bytes after encoding", len(r.data)-r.off)
	}
	return nil
}
