package crypto

import (
	"encoding/hex"
	"fmt"
)

// DigestSize is the byte length of every hash output in the system.
const DigestSize = 32

// Digest is a fixed 32-byte hash output. The zero value is the zero
// digest used by the genesis block.
type Digest [DigestSize]byte

// DigestFromHex parses a 64-character hex string into a Digest.
func DigestFromHex(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("invalid digest hex: %w", err)
	}
	if len(raw) != DigestSize {
		return d, fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

// DigestFromBytes copies raw into a Digest, rejecting wrong lengths.
func DigestFromBytes(raw []byte) (Digest, error) {
	var d Digest
	if len(raw) != DigestSize {
		return d, fmt.Errorf("digest must be %d bytes, got %d", DigestSize, len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Short abbreviates the hex form for log lines.
func (d Digest) Short() string {
	h := d.Hex()
	return h[:8] + "..." + h[len(h)-8:]
}

func (d Digest) String() string {
	return d.Hex()
}

// MarshalText renders the digest as lowercase hex for JSON transport.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.Hex()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := DigestFromHex(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
