// Package outbound defines the outbound port interfaces.
package outbound

import (
	"context"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
)

// ResourceQuery asks for spendable resources covering an amount of one asset.
type ResourceQuery struct {
	AssetID string
	Amount  uint64
}

// FeeEstimate is the ledger's gas and fee estimate for a transaction.
type FeeEstimate struct {
	GasLimit uint64
	MaxFee   uint64
}

// SubmitResult reports a transaction accepted by the network. Provisional
// acceptance only; finality is not awaited.
type SubmitResult struct {
	TransactionID string
}

// LedgerClient abstracts the distributed ledger: resource selection, fee
// estimation, signing, submission and balance queries. The settlement engine
// treats it as a black box with this contract only.
type LedgerClient interface {
	// SelectResources returns spendable resources owned by owner covering each
	// query. Returns ErrInsufficientResources (wrapped) when the owner's
	// balance cannot cover a query.
	SelectResources(ctx context.Context, owner string, queries []ResourceQuery) ([]entity.Resource, error)

	// EstimateFee estimates gas and fee for the assembled transaction.
	EstimateFee(ctx context.Context, tx *entity.ScriptTransaction) (FeeEstimate, error)

	// Fund adds base-asset inputs from the identity's account to cover the
	// transaction fee, plus the matching change output.
	Fund(ctx context.Context, tx *entity.ScriptTransaction, identity entity.Identity) error

	// Sign produces the identity's witness for the transaction. It does not
	// attach the witness; slot binding is the engine's responsibility.
	Sign(ctx context.Context, tx *entity.ScriptTransaction, identity entity.Identity) (string, error)

	// Submit sends the fully witnessed transaction and waits for provisional
	// acceptance.
	Submit(ctx context.Context, tx *entity.ScriptTransaction) (SubmitResult, error)

	// GetBalance returns the owner's spendable balance of one asset.
	GetBalance(ctx context.Context, owner string, assetID string) (uint64, error)

	// BaseAssetID returns the network's fee asset.
	BaseAssetID(ctx context.Context) (string, error)

	// DeriveEscrowAddress recomputes the escrow address from its lock-script
	// configuration. Pure: identical config always yields an identical address.
	DeriveEscrowAddress(cfg entity.EscrowConfig) (string, error)
}
