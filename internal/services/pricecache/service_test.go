package pricecache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/adapters/outbound/memory"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
)

// countingOracle wraps the memory oracle and counts origin fetches.
type countingOracle struct {
	*memory.Oracle
	calls int
}

func (o *countingOracle) GetPrice(ctx context.Context, asset string) (entity.PriceQuote, error) {
	o.calls++
	return o.Oracle.GetPrice(ctx, asset)
}

func newService(t *testing.T, config ServiceConfig) (*Service, *countingOracle, *memory.QuoteCache) {
	t.Helper()

	origin := &countingOracle{Oracle: memory.NewOracleWithDefaults()}
	cache := memory.NewQuoteCache()

	if len(config.Assets) == 0 {
		config.Assets = []string{"eth", "usdc"}
	}

	svc, err := NewService(config, origin, cache)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, origin, cache
}

func TestNewService_Validation(t *testing.T) {
	origin := memory.NewOracleWithDefaults()
	cache := memory.NewQuoteCache()

	if _, err := NewService(ServiceConfig{Assets: []string{"eth"}}, nil, cache); err == nil {
		t.Error("expected error for nil origin")
	}
	if _, err := NewService(ServiceConfig{Assets: []string{"eth"}}, origin, nil); err == nil {
		t.Error("expected error for nil cache")
	}
	if _, err := NewService(ServiceConfig{}, origin, cache); err == nil {
		t.Error("expected error for empty asset list")
	}
}

func TestGetPrice_MissFetchesOriginAndCaches(t *testing.T) {
	svc, origin, cache := newService(t, ServiceConfig{})
	ctx := context.Background()

	quote, err := svc.GetPrice(ctx, "eth")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if !quote.Price.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("expected price 2500, got %s", quote.Price)
	}
	if origin.calls != 1 {
		t.Errorf("expected 1 origin call, got %d", origin.calls)
	}

	if _, err := cache.Get(ctx, "eth"); err != nil {
		t.Errorf("quote was not written back to the cache: %v", err)
	}
}

func TestGetPrice_HitSkipsOrigin(t *testing.T) {
	svc, origin, _ := newService(t, ServiceConfig{})
	ctx := context.Background()

	if _, err := svc.GetPrice(ctx, "eth"); err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if _, err := svc.GetPrice(ctx, "eth"); err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if origin.calls != 1 {
		t.Errorf("expected 1 origin call, got %d", origin.calls)
	}
}

func TestGetPrice_StaleQuoteRefetched(t *testing.T) {
	svc, origin, cache := newService(t, ServiceConfig{MaxQuoteAge: time.Minute})
	ctx := context.Background()

	stale := entity.PriceQuote{
		Asset: "eth",
		Price: decimal.NewFromInt(1),
		AsOf:  time.Now().Add(-2 * time.Minute),
	}
	if err := cache.Set(ctx, stale); err != nil {
		t.Fatalf("Set: %v", err)
	}

	quote, err := svc.GetPrice(ctx, "eth")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if !quote.Price.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("stale quote served: got price %s", quote.Price)
	}
	if origin.calls != 1 {
		t.Errorf("expected 1 origin call, got %d", origin.calls)
	}
}

func TestGetPrice_UnknownAsset(t *testing.T) {
	svc, _, _ := newService(t, ServiceConfig{})

	if _, err := svc.GetPrice(context.Background(), "doge"); err == nil {
		t.Error("expected error for unknown asset")
	}
}

func TestExists(t *testing.T) {
	svc, _, _ := newService(t, ServiceConfig{})
	ctx := context.Background()

	ok, err := svc.Exists(ctx, "eth")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("expected eth to exist")
	}

	ok, err = svc.Exists(ctx, "doge")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("expected doge to not exist")
	}
}

func TestRefreshAll_WarmsEveryTrackedAsset(t *testing.T) {
	svc, _, cache := newService(t, ServiceConfig{Assets: []string{"eth", "usdc", "btc"}})
	ctx := context.Background()

	svc.RefreshAll(ctx)

	for _, asset := range []string{"eth", "usdc", "btc"} {
		if _, err := cache.Get(ctx, asset); err != nil {
			t.Errorf("asset %s not cached after refresh: %v", asset, err)
		}
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	svc, _, cache := newService(t, ServiceConfig{RefreshInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// The initial refresh happens before the first tick.
	deadline := time.After(2 * time.Second)
	for {
		if _, err := cache.Get(context.Background(), "eth"); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial refresh never populated the cache")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
