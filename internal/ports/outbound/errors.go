package outbound

import "errors"

// ErrInsufficientResources is returned (wrapped) by LedgerClient.SelectResources
// when an owner's balance cannot cover a query.
var ErrInsufficientResources = errors.New("insufficient resources")

// ErrAssetNotFound is returned (wrapped) by PriceOracle.GetPrice for assets the
// oracle has no feed for.
var ErrAssetNotFound = errors.New("asset not found")

// ErrQuoteNotCached is returned by QuoteCache.Get when no quote is stored for
// the asset.
var ErrQuoteNotCached = errors.New("quote not cached")
