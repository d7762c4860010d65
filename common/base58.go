package common

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Account addresses are base58-encoded public keys. The helpers here
// are the only place the encoding is chosen, so switching alphabets
// would be a one-file change.

// EncodeAddress renders a raw public key as an address string
func EncodeAddress(pub []byte) string {
	return base58.Encode(pub)
}

// DecodeAddress recovers the raw public key bytes from an address
func DecodeAddress(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("address is not valid base58: %w", err)
	}
	return raw, nil
}

// IsValidBase58 reports whether s decodes to a non-empty payload
func IsValidBase58(s string) bool {
	raw, err := base58.Decode(s)
	return err == nil && len(raw) > 0
}
