// Package pyth implements the PriceOracle interface against Pyth's Hermes API.
// It provides price lookups for a fixed set of feeds with:
//   - Automatic retry logic with exponential backoff for transient failures
//   - Configurable timeouts and backoff parameters
//   - Rate limiting to stay within API limits
package pyth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/pkg/retry"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

// Compile-time check that Client implements outbound.PriceOracle.
var _ outbound.PriceOracle = (*Client)(nil)

// DefaultPriceIDs maps the supported asset names to their Pyth feed IDs.
var DefaultPriceIDs = map[string]string{
	"fuel": "0x8a757d54e5d34c7ff1aea8502a2d968686027a304d00418092aaf7e60ed98d95",
	"btc":  "0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
	"eth":  "0xff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
	"usdc": "0xeaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a",
}

// ClientConfig holds configuration for the Hermes client.
type ClientConfig struct {
	// BaseURL is the Hermes API base URL.
	// Defaults to https://hermes.pyth.network
	BaseURL string

	// PriceIDs maps asset names to Pyth feed IDs.
	// Defaults to DefaultPriceIDs.
	PriceIDs map[string]string

	// Timeout is the maximum time to wait for a single HTTP request.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for transient failures.
	MaxRetries int

	// InitialBackoff is the initial delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each retry.
	BackoffFactor float64

	// RateLimitPerMin is the rate limit in requests per minute.
	// Defaults to 300, well under Hermes' public limits.
	RateLimitPerMin int

	// Logger is the structured logger for the client.
	Logger *slog.Logger

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// ClientConfigDefaults returns a config with default values.
func ClientConfigDefaults() ClientConfig {
	return ClientConfig{
		BaseURL:         "https://hermes.pyth.network",
		Timeout:         30 * time.Second,
		MaxRetries:      3,
		InitialBackoff:  500 * time.Millisecond,
		MaxBackoff:      10 * time.Second,
		BackoffFactor:   2.0,
		RateLimitPerMin: 300,
		Logger:          slog.Default(),
	}
}

// Client implements PriceOracle using Pyth's Hermes API.
type Client struct {
	config      ClientConfig
	priceIDs    map[string]string
	httpClient  *http.Client
	logger      *slog.Logger
	limiter     *rate.Limiter
	retryConfig retry.Config
}

// NewClient creates a new Hermes API client.
func NewClient(config ClientConfig) (*Client, error) {
	defaults := ClientConfigDefaults()
	applyDefaults(&config, defaults)

	priceIDs := make(map[string]string, len(config.PriceIDs))
	for name, id := range config.PriceIDs {
		priceIDs[strings.ToLower(name)] = id
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	rps := float64(config.RateLimitPerMin) / 60.0
	limiter := rate.NewLimiter(rate.Limit(rps), 1)

	return &Client{
		config:     config,
		priceIDs:   priceIDs,
		httpClient: httpClient,
		logger:     config.Logger.With("component", "pyth-client"),
		limiter:    limiter,
		retryConfig: retry.Config{
			MaxRetries:     config.MaxRetries,
			InitialBackoff: config.InitialBackoff,
			MaxBackoff:     config.MaxBackoff,
			BackoffFactor:  config.BackoffFactor,
			Jitter:         false, // Keep deterministic for API rate limiting
		},
	}, nil
}

func applyDefaults(config *ClientConfig, defaults ClientConfig) {
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.PriceIDs == nil {
		config.PriceIDs = DefaultPriceIDs
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = defaults.BackoffFactor
	}
	if config.RateLimitPerMin == 0 {
		config.RateLimitPerMin = defaults.RateLimitPerMin
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
}

// Name returns the oracle name.
func (c *Client) Name() string {
	return "pyth"
}

// Assets returns the names of every asset the client has a feed for.
func (c *Client) Assets() []string {
	names := make([]string, 0, len(c.priceIDs))
	for name := range c.priceIDs {
		names = append(names, name)
	}
	return names
}

// Exists reports whether the client has a feed ID for the asset.
func (c *Client) Exists(ctx context.Context, asset string) (bool, error) {
	_, ok := c.priceIDs[strings.ToLower(asset)]
	return ok, nil
}

// GetPrice fetches the latest price update for the asset's feed.
// Uses the /v2/updates/price/latest endpoint.
func (c *Client) GetPrice(ctx context.Context, asset string) (entity.PriceQuote, error) {
	name := strings.ToLower(asset)
	feedID, ok := c.priceIDs[name]
	if !ok {
		return entity.PriceQuote{}, fmt.Errorf("%w: %s", outbound.ErrAssetNotFound, asset)
	}

	endpoint := fmt.Sprintf("%s/v2/updates/price/latest", c.config.BaseURL)
	params := url.Values{
		"ids[]":    {feedID},
		"parsed":   {"true"},
		"encoding": {"hex"},
	}

	var response latestPriceResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return entity.PriceQuote{}, fmt.Errorf("fetching price for %s: %w", name, err)
	}
	if len(response.Parsed) == 0 {
		return entity.PriceQuote{}, fmt.Errorf("no parsed price update for %s", name)
	}

	feed := response.Parsed[0]
	price, err := scalePrice(feed.Price)
	if err != nil {
		return entity.PriceQuote{}, fmt.Errorf("feed %s: %w", feed.ID, err)
	}

	return entity.PriceQuote{
		Asset: name,
		Price: price,
		AsOf:  time.Unix(feed.Price.PublishTime, 0),
	}, nil
}

// scalePrice converts Pyth's integer price plus exponent into a decimal,
// e.g. price "250012345678" with expo -8 becomes 2500.12345678.
func scalePrice(p priceData) (decimal.Decimal, error) {
	mantissa, err := decimal.NewFromString(p.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid price %q: %w", p.Price, err)
	}
	return mantissa.Shift(p.Expo), nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	fullURL := endpoint
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	isRetryable := func(err error) bool {
		var nonRetryable *nonRetryableError
		return !errors.As(err, &nonRetryable)
	}

	onRetry := func(attempt int, err error, backoff time.Duration) {
		c.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"maxRetries", c.retryConfig.MaxRetries,
			"backoff", backoff,
			"error", err,
		)
	}

	return retry.DoVoid(ctx, c.retryConfig, isRetryable, onRetry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return &nonRetryableError{err: fmt.Errorf("rate limiter: %w", err)}
		}
		return c.doSingleRequest(ctx, fullURL, result)
	})
}

func (c *Client) doSingleRequest(ctx context.Context, fullURL string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return &nonRetryableError{err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limited (HTTP 429)")
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("server error (HTTP %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr hermesError
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return &nonRetryableError{err: fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, apiErr.Message)}
		}
		return &nonRetryableError{err: fmt.Errorf("client error (HTTP %d): %s", resp.StatusCode, string(body))}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return &nonRetryableError{err: fmt.Errorf("parsing response: %w", err)}
	}

	return nil
}

// nonRetryableError wraps errors that should not be retried.
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string {
	return e.err.Error()
}

func (e *nonRetryableError) Unwrap() error {
	return e.err
}
