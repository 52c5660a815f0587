package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a point-in-time price for one asset, denominated in USD.
// The AsOf timestamp records when the underlying feed produced the price so
// staleness is observable by callers rather than ambient state.
type PriceQuote struct {
	Asset string
	Price decimal.Decimal
	AsOf  time.Time
}

// Age returns how old the quote is relative to now.
func (q PriceQuote) Age(now time.Time) time.Duration {
	return now.Sub(q.AsOf)
}
