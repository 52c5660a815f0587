package entity

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/pkg/hexutil"
)

// ZeroSubID is the default sub-identifier used when deriving asset IDs from a
// token contract. All assets in the registry are minted with the zero sub-ID.
const ZeroSubID = "0x0000000000000000000000000000000000000000000000000000000000000000"

// Asset is a tradeable token known to the solver: a human-readable name and
// the contract that minted it.
type Asset struct {
	Name       string
	ContractID string
}

// NewAsset creates an Asset with validation. Names are normalised to lower case.
func NewAsset(name, contractID string) (Asset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Asset{}, fmt.Errorf("asset name must not be empty")
	}
	if !hexutil.IsValid(contractID) {
		return Asset{}, fmt.Errorf("asset %s: invalid contract id %q", name, contractID)
	}
	return Asset{Name: name, ContractID: contractID}, nil
}

// AssetID derives the ledger asset ID for this asset: the sha3-256 digest of
// the minting contract ID concatenated with the zero sub-ID.
func (a Asset) AssetID() string {
	contract, err := hexutil.Decode(a.ContractID)
	if err != nil {
		// ContractID is validated on construction; a bad one here is a bug.
		panic(fmt.Sprintf("asset %s: corrupt contract id: %v", a.Name, err))
	}
	subID, _ := hexutil.Decode(ZeroSubID)

	h := sha3.New256()
	h.Write(contract)
	h.Write(subID)
	return hexutil.Encode(h.Sum(nil))
}

// Registry is a fixed set of assets the solver is willing to quote and settle.
// It is loaded once at startup and never mutated, so lookups are safe for
// concurrent use.
type Registry struct {
	assets map[string]Asset
}

// NewRegistry builds a registry from the given assets.
func NewRegistry(assets []Asset) (*Registry, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("registry requires at least one asset")
	}
	m := make(map[string]Asset, len(assets))
	for _, a := range assets {
		if _, dup := m[a.Name]; dup {
			return nil, fmt.Errorf("duplicate asset %q", a.Name)
		}
		m[a.Name] = a
	}
	return &Registry{assets: m}, nil
}

// Lookup returns the asset with the given name (case-insensitive).
func (r *Registry) Lookup(name string) (Asset, bool) {
	a, ok := r.assets[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Names returns all registered asset names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.assets))
	for name := range r.assets {
		names = append(names, name)
	}
	return names
}
