package fuel

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/pkg/hexutil"
)

// NewIdentityFromKey derives a funding identity from a 0x-hex secp256k1
// private key. The address is the hash of the uncompressed public key without
// its format prefix.
func NewIdentityFromKey(hexKey string) (entity.Identity, error) {
	keyBytes, err := hexutil.Decode(hexKey)
	if err != nil {
		return entity.Identity{}, fmt.Errorf("invalid private key: %w", err)
	}
	if len(keyBytes) != 32 {
		return entity.Identity{}, fmt.Errorf("private key must be 32 bytes, got %d", len(keyBytes))
	}

	key := secp256k1.PrivKeyFromBytes(keyBytes)
	pubKey := key.PubKey().SerializeUncompressed()

	h := sha3.New256()
	h.Write(pubKey[1:])
	address := hexutil.Encode(h.Sum(nil))

	return entity.NewIdentity(address, keyBytes)
}

// NewIdentitiesFromKeys derives one identity per 0x-hex private key, in order.
func NewIdentitiesFromKeys(hexKeys []string) ([]entity.Identity, error) {
	identities := make([]entity.Identity, 0, len(hexKeys))
	for i, hexKey := range hexKeys {
		identity, err := NewIdentityFromKey(hexKey)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		identities = append(identities, identity)
	}
	return identities, nil
}
