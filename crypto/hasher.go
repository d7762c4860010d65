package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Supported hash scheme names as they appear in genesis configuration.
const (
	HashSchemeSHA256  = "sha256"
	HashSchemeBlake2b = "blake2b"
)

// Hasher is the hashing capability the ledger is parameterized over.
// Implementations must be deterministic and safe for concurrent use.
type Hasher interface {
	Name() string
	Sum(data []byte) Digest
}

// NewHasher returns the hasher for a genesis hash_scheme value. The
// empty string selects sha256.
func NewHasher(name string) (Hasher, error) {
	switch name {
	case "", HashSchemeSHA256:
		return sha256Hasher{}, nil
	case HashSchemeBlake2b:
		return blake2bHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown hash scheme %q", name)
	}
}

type sha256Hasher struct{}

func (sha256Hasher) Name() string { return HashSchemeSHA256 }

func (sha256Hasher) Sum(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

type blake2bHasher struct{}

func (blake2bHasher) Name() string { return HashSchemeBlake2b }

func (blake2bHasher) Sum(data []byte) Digest {
	return Digest(blake2b.Sum256(data))
}
