// Package inbound defines the inbound port interfaces.
package inbound

import (
	"context"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
)

// OrderFiller drives a fill request through settlement. Implemented by the
// settlement engine and consumed by the HTTP adapter.
type OrderFiller interface {
	// FillOrder settles the request atomically: it either returns a result
	// carrying the submitted transaction, or a classified error with no ledger
	// side effects beyond the documented escrow-funding step.
	FillOrder(ctx context.Context, req *entity.FillRequest) (*entity.FillResult, error)
}

// PoolStatus reports signer pool capacity for health and readiness surfaces.
type PoolStatus interface {
	// Count returns the total number of funding identities.
	Count() int
	// Available returns how many identities are currently unleased.
	Available() int
}
