// Package redis provides a Redis implementation of the QuoteCache port.
//
// Quotes are stored as JSON under prefix:quote:asset keys with a configurable
// TTL, so a quote that outlives the refresh loop expires on its own instead of
// being served stale forever.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

// Compile-time check that QuoteCache implements outbound.QuoteCache
var _ outbound.QuoteCache = (*QuoteCache)(nil)

// Config holds Redis cache configuration.
type Config struct {
	// Addr is the Redis server address (e.g., "localhost:6379")
	Addr string
	// Password for Redis authentication (empty for no auth)
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// TTL is how long cached quotes live before expiring
	TTL time.Duration
	// KeyPrefix is prepended to all cache keys
	KeyPrefix string
}

// ConfigDefaults returns sensible defaults for Redis cache configuration.
func ConfigDefaults() Config {
	return Config{
		Addr:      "localhost:6379",
		Password:  "",
		DB:        0,
		TTL:       time.Minute,
		KeyPrefix: "solver",
	}
}

// QuoteCache is a Redis implementation of the outbound.QuoteCache port.
type QuoteCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	logger    *slog.Logger
}

// storedQuote is the JSON shape persisted to Redis. The price travels as a
// string to survive round-tripping without float truncation.
type storedQuote struct {
	Asset string    `json:"asset"`
	Price string    `json:"price"`
	AsOf  time.Time `json:"asOf"`
}

// NewQuoteCache creates a new Redis quote cache.
func NewQuoteCache(cfg Config, logger *slog.Logger) (*QuoteCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "redis-quote-cache")

	return &QuoteCache{
		client:    client,
		ttl:       cfg.TTL,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger,
	}, nil
}

// Ping checks the Redis connection.
func (c *QuoteCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *QuoteCache) Close() error {
	return c.client.Close()
}

// key generates a cache key in the format prefix:quote:asset
func (c *QuoteCache) key(asset string) string {
	return fmt.Sprintf("%s:quote:%s", c.keyPrefix, strings.ToLower(asset))
}

// Set caches the quote under its asset name.
func (c *QuoteCache) Set(ctx context.Context, quote entity.PriceQuote) error {
	data, err := json.Marshal(storedQuote{
		Asset: strings.ToLower(quote.Asset),
		Price: quote.Price.String(),
		AsOf:  quote.AsOf,
	})
	if err != nil {
		return fmt.Errorf("failed to encode quote: %w", err)
	}

	if err := c.client.Set(ctx, c.key(quote.Asset), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache quote: %w", err)
	}
	return nil
}

// Get retrieves the cached quote for the asset.
func (c *QuoteCache) Get(ctx context.Context, asset string) (entity.PriceQuote, error) {
	data, err := c.client.Get(ctx, c.key(asset)).Bytes()
	if err == redis.Nil {
		return entity.PriceQuote{}, fmt.Errorf("%w: %s", outbound.ErrQuoteNotCached, asset)
	}
	if err != nil {
		return entity.PriceQuote{}, fmt.Errorf("failed to get quote: %w", err)
	}

	var stored storedQuote
	if err := json.Unmarshal(data, &stored); err != nil {
		return entity.PriceQuote{}, fmt.Errorf("failed to decode quote: %w", err)
	}
	price, err := decimal.NewFromString(stored.Price)
	if err != nil {
		return entity.PriceQuote{}, fmt.Errorf("invalid cached price %q: %w", stored.Price, err)
	}

	return entity.PriceQuote{
		Asset: stored.Asset,
		Price: price,
		AsOf:  stored.AsOf,
	}, nil
}
