package entity

import (
	"fmt"
	"time"
)

// FillRequest is the inbound intent to swap a sell asset for a buy asset.
// It is immutable after receipt; any structural defect rejects the whole
// request, never a part of it.
type FillRequest struct {
	// ID identifies the fill for logging and audit. Assigned on receipt.
	ID string
	// SellAsset and BuyAsset are registry names, e.g. "eth", "usdc".
	SellAsset string
	BuyAsset  string
	// SellAmount is the amount of the sell asset, in base units.
	SellAmount uint64
	// Recipient is the address that receives the buy-asset payment.
	Recipient string
	// Tx is the caller's partially-built transaction carrying the sell-leg
	// inputs. The pipeline clones it before mutating.
	Tx *ScriptTransaction
	// Escrow is the escrow leg. Nil for the direct variant, where the sell
	// funds ride in on Tx's own inputs.
	Escrow *EscrowParams
	// ReceivedAt is when the request entered the solver.
	ReceivedAt time.Time
}

// Validate checks every required field. Asset existence is checked separately
// against the registry by the settlement engine.
func (r *FillRequest) Validate() error {
	if r.SellAsset == "" || r.BuyAsset == "" {
		return fmt.Errorf("sellTokenName and buyTokenName are required")
	}
	if r.SellAmount == 0 {
		return fmt.Errorf("sellTokenAmount must be positive")
	}
	if r.Recipient == "" {
		return fmt.Errorf("recepientAddress is required")
	}
	if r.Tx == nil {
		return fmt.Errorf("scriptRequest is required")
	}
	if err := r.Tx.Validate(); err != nil {
		return fmt.Errorf("scriptRequest: %w", err)
	}
	if r.Escrow != nil {
		if err := r.Escrow.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FillResult is the outcome of a successful fill.
type FillResult struct {
	// FillID echoes the request ID.
	FillID string
	// TransactionID is the submitted settlement transaction's ID.
	TransactionID string
	// BuyAmount is the computed amount of the buy asset paid to the recipient.
	BuyAmount uint64
	// Tx is the fully assembled, fully witnessed settlement transaction.
	Tx *ScriptTransaction
}

// FillRecord is the audit trail entry persisted for every completed fill
// attempt, successful or not.
type FillRecord struct {
	FillID        string
	SellAsset     string
	BuyAsset      string
	SellAmount    uint64
	BuyAmount     uint64
	Recipient     string
	TransactionID string
	Status        string
	ErrorCode     string
	StartedAt     time.Time
	FinishedAt    time.Time
}
