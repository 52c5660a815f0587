package entity

import (
	"fmt"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/pkg/hexutil"
)

// Identity is a funding account: an exclusive signing capability plus its
// ledger address. Identities are immutable once loaded and are owned
// exclusively by the signer lease pool; nothing else mutates them.
type Identity struct {
	// Address is the B256 address funds are held at.
	Address string
	// PrivateKey is the raw secp256k1 signing key.
	PrivateKey []byte
}

// NewIdentity creates an identity with validation.
func NewIdentity(address string, privateKey []byte) (Identity, error) {
	if !hexutil.IsValid(address) {
		return Identity{}, fmt.Errorf("identity address: invalid hex %q", address)
	}
	if len(privateKey) != 32 {
		return Identity{}, fmt.Errorf("identity private key must be 32 bytes, got %d", len(privateKey))
	}
	key := make([]byte, len(privateKey))
	copy(key, privateKey)
	return Identity{Address: address, PrivateKey: key}, nil
}
