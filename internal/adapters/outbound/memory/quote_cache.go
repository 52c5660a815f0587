package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

// Compile-time check that QuoteCache implements outbound.QuoteCache.
var _ outbound.QuoteCache = (*QuoteCache)(nil)

// QuoteCache is an in-memory QuoteCache.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]entity.PriceQuote
}

// NewQuoteCache creates an empty in-memory quote cache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{quotes: make(map[string]entity.PriceQuote)}
}

// Set stores the quote for its asset.
func (c *QuoteCache) Set(ctx context.Context, quote entity.PriceQuote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[strings.ToLower(quote.Asset)] = quote
	return nil
}

// Get returns the stored quote for the asset.
func (c *QuoteCache) Get(ctx context.Context, asset string) (entity.PriceQuote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	quote, ok := c.quotes[strings.ToLower(asset)]
	if !ok {
		return entity.PriceQuote{}, fmt.Errorf("%w: %s", outbound.ErrQuoteNotCached, asset)
	}
	return quote, nil
}
