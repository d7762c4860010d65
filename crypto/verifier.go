package crypto

import (
	"crypto/ed25519"
	"fmt"

	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/mtlnet/mtl/common"
)

// Supported signature scheme names as they appear in genesis configuration.
const (
	SigSchemeEd25519   = "ed25519"
	SigSchemeSecp256k1 = "secp256k1"
	SigSchemeWasm      = "wasm"
)

// Verifier checks that a signature over a content digest belongs to the
// sender address. Addresses encode the public key, so verification needs
// no key registry.
type Verifier interface {
	Scheme() string
	Verify(digest Digest, signature []byte, address string) bool
}

// NewVerifier returns the verifier for a genesis signature_scheme value.
// The empty string selects ed25519. wasmModule is the module path used
// by the wasm scheme and is ignored otherwise.
func NewVerifier(scheme string, wasmModule string) (Verifier, error) {
	switch scheme {
	case "", SigSchemeEd25519:
		return ed25519Verifier{}, nil
	case SigSchemeSecp256k1:
		return secp256k1Verifier{}, nil
	case SigSchemeWasm:
		return NewWasmVerifier(wasmModule)
	default:
		return nil, fmt.Errorf("unknown signature scheme %q", scheme)
	}
}

// ed25519Verifier treats the address as the base58 of a 32-byte ed25519
// public key.
type ed25519Verifier struct{}

func (ed25519Verifier) Scheme() string { return SigSchemeEd25519 }

func (ed25519Verifier) Verify(digest Digest, signature []byte, address string) bool {
	pub, err := common.DecodeAddress(address)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), digest[:], signature)
}

// secp256k1Verifier treats the address as the base58 of a 33-byte
// compressed secp256k1 public key and expects compact signatures, so the
// key is recovered from the signature and compared against the address.
type secp256k1Verifier struct{}

func (secp256k1Verifier) Scheme() string { return SigSchemeSecp256k1 }

func (secp256k1Verifier) Verify(digest Digest, signature []byte, address string) bool {
	pub, _, err := secpecdsa.RecoverCompact(signature, digest[:])
	if err != nil {
		return false
	}
	return common.EncodeAddress(pub.SerializeCompressed()) == address
}
