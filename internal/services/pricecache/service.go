// Package pricecache serves price quotes from an injectable cache backed by an
// origin oracle, refreshing the cached quotes in the background.
package pricecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

// Compile-time check that Service implements outbound.PriceOracle.
var _ outbound.PriceOracle = (*Service)(nil)

// DefaultRefreshInterval is how often the background loop refreshes every
// tracked asset when no interval is configured.
const DefaultRefreshInterval = 10 * time.Second

// ServiceConfig holds configuration for the price cache service.
type ServiceConfig struct {
	// Assets are the registry names tracked by the background refresh loop.
	Assets []string

	// RefreshInterval is the period of the background refresh loop.
	// Defaults to DefaultRefreshInterval if not set.
	RefreshInterval time.Duration

	// MaxQuoteAge rejects cached quotes older than this on read. Zero
	// disables the staleness check; a stale quote then falls through to the
	// origin oracle.
	MaxQuoteAge time.Duration

	// Logger is the structured logger for the service.
	Logger *slog.Logger
}

// Service is a read-through price oracle: quotes are served from the cache
// when present and fresh, and fetched from the origin oracle otherwise. Every
// quote carries the as-of timestamp of its origin fetch, so consumers can see
// how stale the price they settled against was.
type Service struct {
	config ServiceConfig
	origin outbound.PriceOracle
	cache  outbound.QuoteCache
	logger *slog.Logger
}

// NewService creates a price cache service in front of the origin oracle.
func NewService(config ServiceConfig, origin outbound.PriceOracle, cache outbound.QuoteCache) (*Service, error) {
	if origin == nil {
		return nil, fmt.Errorf("origin oracle cannot be nil")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	if len(config.Assets) == 0 {
		return nil, fmt.Errorf("at least one asset must be tracked")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}

	return &Service{
		config: config,
		origin: origin,
		cache:  cache,
		logger: logger.With("component", "price-cache", "origin", origin.Name()),
	}, nil
}

// Name returns the origin oracle's name.
func (s *Service) Name() string {
	return s.origin.Name()
}

// GetPrice returns the cached quote for the asset, falling back to the origin
// oracle on a miss or a stale entry. Origin quotes are written back to the
// cache before they are returned.
func (s *Service) GetPrice(ctx context.Context, asset string) (entity.PriceQuote, error) {
	quote, err := s.cache.Get(ctx, asset)
	if err == nil && s.fresh(quote) {
		return quote, nil
	}
	if err != nil && !errors.Is(err, outbound.ErrQuoteNotCached) {
		s.logger.Warn("quote cache read failed", "asset", asset, "error", err)
	}

	return s.refreshOne(ctx, asset)
}

// Exists reports whether the origin oracle serves a feed for the asset. A
// cached quote answers without touching the origin.
func (s *Service) Exists(ctx context.Context, asset string) (bool, error) {
	if quote, err := s.cache.Get(ctx, asset); err == nil && s.fresh(quote) {
		return true, nil
	}
	return s.origin.Exists(ctx, asset)
}

// Run refreshes every tracked asset on the configured interval until the
// context is cancelled. One immediate refresh happens before the first tick so
// the cache is warm as soon as the service starts.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting price refresh loop",
		"assets", s.config.Assets,
		"interval", s.config.RefreshInterval,
	)

	s.RefreshAll(ctx)

	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("price refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RefreshAll(ctx)
		}
	}
}

// RefreshAll fetches every tracked asset from the origin once. A failing asset
// is logged and skipped; its previous cached quote stays in place.
func (s *Service) RefreshAll(ctx context.Context) {
	for _, asset := range s.config.Assets {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.refreshOne(ctx, asset); err != nil {
			s.logger.Error("refreshing price failed", "asset", asset, "error", err)
		}
	}
}

func (s *Service) refreshOne(ctx context.Context, asset string) (entity.PriceQuote, error) {
	quote, err := s.origin.GetPrice(ctx, asset)
	if err != nil {
		return entity.PriceQuote{}, fmt.Errorf("fetching price for %s: %w", asset, err)
	}
	if quote.AsOf.IsZero() {
		quote.AsOf = time.Now()
	}

	if err := s.cache.Set(ctx, quote); err != nil {
		// Serving the fresh quote matters more than caching it.
		s.logger.Warn("quote cache write failed", "asset", asset, "error", err)
	}

	s.logger.Debug("refreshed price", "asset", asset, "price", quote.Price, "asOf", quote.AsOf)
	return quote, nil
}

func (s *Service) fresh(quote entity.PriceQuote) bool {
	if s.config.MaxQuoteAge <= 0 {
		return true
	}
	return quote.Age(time.Now()) <= s.config.MaxQuoteAge
}
