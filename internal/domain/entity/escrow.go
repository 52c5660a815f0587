package entity

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/pkg/hexutil"
)

// EscrowConfig holds the lock-script configuration constants baked into an
// on-chain escrow. The escrow address is a deterministic function of exactly
// these four values, which is what lets the solver verify that a request's
// escrow address belongs to the request's own parameters.
type EscrowConfig struct {
	// AssetIn is the asset ID the escrow accepts (the user's sell asset).
	AssetIn string
	// AssetOut is the asset ID the escrow releases funds against (the buy asset).
	AssetOut string
	// MinimumOutput is the smallest acceptable amount of AssetOut.
	MinimumOutput uint64
	// Recipient is the address that must receive the AssetOut payment.
	Recipient string
}

// Validate checks that all configuration constants are well-formed.
func (c EscrowConfig) Validate() error {
	if !hexutil.IsValid(c.AssetIn) {
		return fmt.Errorf("escrow assetIn: invalid hex %q", c.AssetIn)
	}
	if !hexutil.IsValid(c.AssetOut) {
		return fmt.Errorf("escrow assetOut: invalid hex %q", c.AssetOut)
	}
	if !hexutil.IsValid(c.Recipient) {
		return fmt.Errorf("escrow recipient: invalid hex %q", c.Recipient)
	}
	if c.MinimumOutput == 0 {
		return fmt.Errorf("escrow minimumOutput must be positive")
	}
	return nil
}

// DeriveAddress computes the escrow address from the configuration constants:
// the sha3-256 digest over the lock script's configurable section, laid out as
// assetIn || assetOut || minimumOutput (big-endian u64) || recipient. Pure:
// identical config always yields an identical address, and changing any one
// constant changes it.
func (c EscrowConfig) DeriveAddress() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	assetIn, _ := hexutil.Decode(c.AssetIn)
	assetOut, _ := hexutil.Decode(c.AssetOut)
	recipient, _ := hexutil.Decode(c.Recipient)

	var minOut [8]byte
	binary.BigEndian.PutUint64(minOut[:], c.MinimumOutput)

	h := sha3.New256()
	h.Write(assetIn)
	h.Write(assetOut)
	h.Write(minOut[:])
	h.Write(recipient)
	return hexutil.Encode(h.Sum(nil)), nil
}

// EscrowParams is the escrow leg of a fill request: where the user's funds are
// locked, the lock configuration they claim it was built from, and the
// not-yet-submitted transaction that moves their funds into the escrow.
type EscrowParams struct {
	// Address is the caller-supplied escrow address. It must match the address
	// derived from Config or the request is rejected.
	Address string
	// Config holds the lock-script constants.
	Config EscrowConfig
	// FundingTx moves the user's sell-asset funds into the escrow. Submitting
	// it is the one side-effecting step that cannot be rolled back on a later
	// pipeline failure.
	FundingTx *ScriptTransaction
}

// Validate checks the escrow leg for structural defects.
func (p EscrowParams) Validate() error {
	if !hexutil.IsValid(p.Address) {
		return fmt.Errorf("escrow address: invalid hex %q", p.Address)
	}
	if err := p.Config.Validate(); err != nil {
		return err
	}
	if p.FundingTx == nil {
		return fmt.Errorf("escrow funding transaction is required")
	}
	if err := p.FundingTx.Validate(); err != nil {
		return fmt.Errorf("escrow funding transaction: %w", err)
	}
	return nil
}
