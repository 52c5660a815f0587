package outbound

import (
	"context"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
)

// QuoteCache stores the latest quote per asset. Implementations decide
// durability and expiry; the as-of timestamp travels with every quote so
// staleness stays observable regardless of the backing store.
type QuoteCache interface {
	// Set stores the quote for its asset, replacing any previous one.
	Set(ctx context.Context, quote entity.PriceQuote) error

	// Get returns the stored quote for the asset.
	// Returns ErrQuoteNotCached (wrapped) when none is stored.
	Get(ctx context.Context, asset string) (entity.PriceQuote, error)
}
