package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/mtlnet/mtl/common"
)

// Signer produces signatures the matching Verifier accepts. Used by the
// CLI and tests; the node itself only verifies.
type Signer interface {
	Scheme() string
	Address() string
	Sign(digest Digest) []byte
	PrivateKeyHex() string
}

// NewSigner generates a fresh keypair for the given signature scheme.
func NewSigner(scheme string) (Signer, error) {
	switch scheme {
	case "", SigSchemeEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate ed25519 key: %w", err)
		}
		return &Ed25519Signer{priv: priv}, nil
	case SigSchemeSecp256k1:
		priv, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generate secp256k1 key: %w", err)
		}
		return &Secp256k1Signer{priv: priv}, nil
	default:
		return nil, fmt.Errorf("unknown signature scheme %q", scheme)
	}
}

// LoadSigner reads a hex-encoded private key file written by keygen.
func LoadSigner(scheme, path string) (Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return ParseSigner(scheme, strings.TrimSpace(string(data)))
}

// ParseSigner builds a signer from a hex-encoded private key.
func ParseSigner(scheme, privHex string) (Signer, error) {
	raw, err := hex.DecodeString(privHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	switch scheme {
	case "", SigSchemeEd25519:
		if len(raw) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
		}
		return &Ed25519Signer{priv: ed25519.PrivateKey(raw)}, nil
	case SigSchemeSecp256k1:
		if len(raw) != 32 {
			return nil, fmt.Errorf("secp256k1 private key must be 32 bytes, got %d", len(raw))
		}
		return &Secp256k1Signer{priv: secp256k1.PrivKeyFromBytes(raw)}, nil
	default:
		return nil, fmt.Errorf("unknown signature scheme %q", scheme)
	}
}

type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

func NewEd25519Signer(priv ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{priv: priv}
}

func (s *Ed25519Signer) Scheme() string { return SigSchemeEd25519 }

func (s *Ed25519Signer) Address() string {
	return common.EncodeAddress(s.priv.Public().(ed25519.PublicKey))
}

func (s *Ed25519Signer) Sign(digest Digest) []byte {
	return ed25519.Sign(s.priv, digest[:])
}

// PrivateKeyHex renders the key in the format keygen writes to disk.
func (s *Ed25519Signer) PrivateKeyHex() string {
	return hex.EncodeToString(s.priv)
}

type Secp256k1Signer struct {
	priv *secp256k1.PrivateKey
}

func (s *Secp256k1Signer) Scheme() string { return SigSchemeSecp256k1 }

func (s *Secp256k1Signer) Address() string {
	return common.EncodeAddress(s.priv.PubKey().SerializeCompressed())
}

func (s *Secp256k1Signer) Sign(digest Digest) []byte {
	return secpecdsa.SignCompact(s.priv, digest[:], true)
}

func (s *Secp256k1Signer) PrivateKeyHex() string {
	return hex.EncodeToString(s.priv.Serialize())
}
