package outbound

import (
	"context"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
)

// PriceOracle is the interface for any price data source.
type PriceOracle interface {
	// Name returns the oracle name (e.g., "pyth").
	Name() string

	// GetPrice returns the most recent available quote for the named asset.
	// Returns ErrAssetNotFound (wrapped) for assets without a feed.
	GetPrice(ctx context.Context, asset string) (entity.PriceQuote, error)

	// Exists reports whether the oracle has a feed for the named asset.
	Exists(ctx context.Context, asset string) (bool, error)
}
