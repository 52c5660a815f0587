// Command solver runs the settlement backend: an HTTP API that fills swap
// orders against the solver's own inventory on a Fuel node.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpapi "github.com/bajpai244/fuel-predicate-orderbook/internal/adapters/inbound/http"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/adapters/outbound/fuel"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/adapters/outbound/memory"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/adapters/outbound/postgres"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/adapters/outbound/pyth"
	redisadapter "github.com/bajpai244/fuel-predicate-orderbook/internal/adapters/outbound/redis"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/adapters/outbound/telemetry"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/pkg/env"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/services/pricecache"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/services/settlement"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/services/signerpool"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelInfo),
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("solver exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledgerURL := env.Get("LEDGER_URL", "")
	if ledgerURL == "" {
		return fmt.Errorf("LEDGER_URL is required")
	}
	rawKeys := env.Get("PRIVATE_KEYS", "")
	if rawKeys == "" {
		return fmt.Errorf("PRIVATE_KEYS is required")
	}

	registry, err := loadRegistry(env.Get("ASSETS_FILE", "assets.json"))
	if err != nil {
		return fmt.Errorf("loading asset registry: %w", err)
	}

	identities, err := fuel.NewIdentitiesFromKeys(strings.Split(rawKeys, ","))
	if err != nil {
		return fmt.Errorf("loading funding identities: %w", err)
	}
	pool, err := signerpool.NewPool(identities, signerpool.PoolConfig{
		LeaseDuration: env.GetDuration("LEASE_DURATION", signerpool.DefaultLeaseDuration),
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("creating signer pool: %w", err)
	}
	logger.Info("signer pool ready", "identities", pool.Count())

	ledger, err := fuel.NewClient(fuel.ClientConfig{
		URL:    ledgerURL,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("creating ledger client: %w", err)
	}

	origin, err := pyth.NewClient(pyth.ClientConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("creating price oracle client: %w", err)
	}

	quoteCache, closeCache, err := newQuoteCache(ctx, logger)
	if err != nil {
		return fmt.Errorf("creating quote cache: %w", err)
	}
	defer closeCache()

	oracle, err := pricecache.NewService(pricecache.ServiceConfig{
		Assets:          registry.Names(),
		RefreshInterval: env.GetDuration("PRICE_REFRESH_INTERVAL", pricecache.DefaultRefreshInterval),
		Logger:          logger,
	}, origin, quoteCache)
	if err != nil {
		return fmt.Errorf("creating price cache: %w", err)
	}
	go func() {
		if err := oracle.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("price refresh loop failed", "error", err)
		}
	}()

	fills, closeFills, err := newFillRepository(ctx, logger)
	if err != nil {
		return fmt.Errorf("creating fill repository: %w", err)
	}
	defer closeFills()

	metrics, err := telemetry.NewMetrics("solver")
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	engine, err := settlement.NewEngine(settlement.EngineConfig{
		Logger:  logger,
		Fills:   fills,
		Metrics: metrics,
	}, pool, ledger, oracle, registry)
	if err != nil {
		return fmt.Errorf("creating settlement engine: %w", err)
	}

	handler := httpapi.NewHandler(engine, oracle, pool, logger)
	server := httpapi.NewServer(httpapi.ServerConfig{
		Addr:   ":" + env.Get("PORT", "3000"),
		Logger: logger,
	}, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := server.Shutdown(10 * time.Second); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// loadRegistry reads the asset registry file: a JSON object mapping token names
// to the contract IDs that minted them.
func loadRegistry(path string) (*entity.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var contracts map[string]string
	if err := json.Unmarshal(data, &contracts); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	assets := make([]entity.Asset, 0, len(contracts))
	for name, contractID := range contracts {
		asset, err := entity.NewAsset(name, contractID)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return entity.NewRegistry(assets)
}

// newQuoteCache picks the Redis cache when REDIS_ADDR is set and falls back to
// the in-process cache otherwise.
func newQuoteCache(ctx context.Context, logger *slog.Logger) (outbound.QuoteCache, func(), error) {
	addr := env.Get("REDIS_ADDR", "")
	if addr == "" {
		logger.Info("using in-memory quote cache")
		return memory.NewQuoteCache(), func() {}, nil
	}

	cfg := redisadapter.ConfigDefaults()
	cfg.Addr = addr
	cfg.Password = env.Get("REDIS_PASSWORD", "")
	cache, err := redisadapter.NewQuoteCache(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := cache.Ping(ctx); err != nil {
		cache.Close()
		return nil, nil, fmt.Errorf("pinging redis: %w", err)
	}
	logger.Info("using redis quote cache", "addr", addr)
	return cache, func() { cache.Close() }, nil
}

// newFillRepository opens the Postgres audit trail when DATABASE_URL is set.
// Auditing is disabled when no database is configured.
func newFillRepository(ctx context.Context, logger *slog.Logger) (outbound.FillRepository, func(), error) {
	url := env.Get("DATABASE_URL", "")
	if url == "" {
		logger.Info("no DATABASE_URL set, fill auditing disabled")
		return nil, func() {}, nil
	}

	pool, err := postgres.OpenPool(ctx, postgres.DefaultDBConfig(url))
	if err != nil {
		return nil, nil, err
	}
	repo, err := postgres.NewFillRepository(pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrating schema: %w", err)
	}
	logger.Info("fill auditing enabled")
	return repo, func() { pool.Close() }, nil
}
