//go:build integration

package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

// setupRedis creates a Redis container and returns a connected QuoteCache.
func setupRedis(t *testing.T, ttl time.Duration) (*QuoteCache, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	cfg := Config{
		Addr:      fmt.Sprintf("%s:%s", host, port.Port()),
		Password:  "",
		DB:        0,
		TTL:       ttl,
		KeyPrefix: "test",
	}

	cache, err := NewQuoteCache(cfg, nil)
	if err != nil {
		t.Fatalf("failed to create quote cache: %v", err)
	}

	// Wait for connection
	for i := 0; i < 30; i++ {
		if err := cache.Ping(ctx); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	cleanup := func() {
		cache.Close()
		container.Terminate(ctx)
	}

	return cache, cleanup
}

func TestSetGet_RoundTrip(t *testing.T) {
	cache, cleanup := setupRedis(t, time.Minute)
	defer cleanup()

	ctx := context.Background()
	asOf := time.Now().UTC().Truncate(time.Millisecond)
	quote := entity.PriceQuote{
		Asset: "eth",
		Price: decimal.RequireFromString("2500.12345678"),
		AsOf:  asOf,
	}

	if err := cache.Set(ctx, quote); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get(ctx, "eth")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Price.Equal(quote.Price) {
		t.Errorf("expected price %s, got %s", quote.Price, got.Price)
	}
	if !got.AsOf.Equal(asOf) {
		t.Errorf("expected asOf %v, got %v", asOf, got.AsOf)
	}
}

func TestGet_MissingQuote(t *testing.T) {
	cache, cleanup := setupRedis(t, time.Minute)
	defer cleanup()

	_, err := cache.Get(context.Background(), "doge")
	if !errors.Is(err, outbound.ErrQuoteNotCached) {
		t.Errorf("expected ErrQuoteNotCached, got %v", err)
	}
}

func TestGet_CaseInsensitiveAsset(t *testing.T) {
	cache, cleanup := setupRedis(t, time.Minute)
	defer cleanup()

	ctx := context.Background()
	quote := entity.PriceQuote{
		Asset: "ETH",
		Price: decimal.NewFromInt(2500),
		AsOf:  time.Now(),
	}
	if err := cache.Set(ctx, quote); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get(ctx, "eth")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Asset != "eth" {
		t.Errorf("expected normalised asset name, got %q", got.Asset)
	}
}

func TestSet_QuoteExpires(t *testing.T) {
	cache, cleanup := setupRedis(t, time.Second)
	defer cleanup()

	ctx := context.Background()
	quote := entity.PriceQuote{
		Asset: "eth",
		Price: decimal.NewFromInt(2500),
		AsOf:  time.Now(),
	}
	if err := cache.Set(ctx, quote); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	_, err := cache.Get(ctx, "eth")
	if !errors.Is(err, outbound.ErrQuoteNotCached) {
		t.Errorf("expected ErrQuoteNotCached after TTL, got %v", err)
	}
}
