package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

// Compile-time check that Oracle implements outbound.PriceOracle.
var _ outbound.PriceOracle = (*Oracle)(nil)

// Oracle is an in-memory PriceOracle serving a fixed price table.
type Oracle struct {
	mu     sync.RWMutex
	prices map[string]entity.PriceQuote
}

// NewOracle creates an empty in-memory oracle.
func NewOracle() *Oracle {
	return &Oracle{prices: make(map[string]entity.PriceQuote)}
}

// NewOracleWithDefaults creates an oracle preloaded with the development
// price table: btc 45000, eth 2500, fuel 10, usdc 1.
func NewOracleWithDefaults() *Oracle {
	o := NewOracle()
	now := time.Now()
	for asset, price := range map[string]int64{
		"btc":  45000,
		"eth":  2500,
		"fuel": 10,
		"usdc": 1,
	} {
		o.SetPrice(entity.PriceQuote{Asset: asset, Price: decimal.NewFromInt(price), AsOf: now})
	}
	return o
}

// SetPrice stores a quote for its asset.
func (o *Oracle) SetPrice(quote entity.PriceQuote) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[strings.ToLower(quote.Asset)] = quote
}

// Name returns the oracle name.
func (o *Oracle) Name() string {
	return "memory"
}

// GetPrice returns the stored quote for the asset.
func (o *Oracle) GetPrice(ctx context.Context, asset string) (entity.PriceQuote, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	quote, ok := o.prices[strings.ToLower(asset)]
	if !ok {
		return entity.PriceQuote{}, fmt.Errorf("%w: %s", outbound.ErrAssetNotFound, asset)
	}
	return quote, nil
}

// Exists reports whether a price is stored for the asset.
func (o *Oracle) Exists(ctx context.Context, asset string) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.prices[strings.ToLower(asset)]
	return ok, nil
}
