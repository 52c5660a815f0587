// Package fuel implements the LedgerClient interface against a Fuel node's
// GraphQL API. Resource selection, fee estimation and submission go to the
// node; signing happens locally with the funding identity's secp256k1 key.
package fuel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/pkg/hexutil"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

// Compile-time check that Client implements outbound.LedgerClient.
var _ outbound.LedgerClient = (*Client)(nil)

const (
	coinsToSpendQuery = `query CoinsToSpend($owner: Address!, $queryPerAsset: [SpendQueryElementInput!]!) {
  coinsToSpend(owner: $owner, queryPerAsset: $queryPerAsset) {
    utxoId
    owner
    amount
    assetId
  }
}`

	balanceQuery = `query Balance($owner: Address!, $assetId: AssetId!) {
  balance(owner: $owner, assetId: $assetId) {
    amount
  }
}`

	chainQuery = `query Chain {
  chain {
    consensusParameters {
      baseAssetId
    }
  }
}`

	gasPriceQuery = `query EstimateGasPrice($blockHorizon: U32!) {
  estimateGasPrice(blockHorizon: $blockHorizon) {
    gasPrice
  }
}`

	submitMutation = `mutation Submit($tx: TransactionInput!) {
  submit(tx: $tx) {
    id
  }
}`
)

// ClientConfig holds configuration for the Fuel node client.
type ClientConfig struct {
	// URL is the node's GraphQL endpoint, e.g. http://localhost:4000/v1/graphql.
	URL string

	// GasLimit is the script gas limit requested for settlement transactions.
	GasLimit uint64

	// GasPriceBlockHorizon is how many blocks ahead the node projects the gas
	// price when estimating.
	GasPriceBlockHorizon uint32

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

	// Logger is the structured logger for the client.
	Logger *slog.Logger

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// ClientConfigDefaults returns a config with default values.
func ClientConfigDefaults() ClientConfig {
	return ClientConfig{
		GasLimit:             100000,
		GasPriceBlockHorizon: 10,
		Timeout:              30 * time.Second,
		MaxRetries:           3,
		InitialBackoff:       100 * time.Millisecond,
		MaxBackoff:           5 * time.Second,
		BackoffFactor:        2.0,
		Logger:               slog.Default(),
	}
}

// Client implements LedgerClient against a Fuel node's GraphQL API.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.Mutex
	baseAssetID string
}

// NewClient creates a new Fuel node client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.URL == "" {
		return nil, errors.New("URL is required")
	}

	defaults := ClientConfigDefaults()
	if config.GasLimit == 0 {
		config.GasLimit = defaults.GasLimit
	}
	if config.GasPriceBlockHorizon == 0 {
		config.GasPriceBlockHorizon = defaults.GasPriceBlockHorizon
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
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     config.Logger.With("component", "fuel-client"),
	}, nil
}

// SelectResources asks the node for spendable coins of the owner covering each
// query. Node-side exclusion of already-spent coins keeps concurrent fills from
// double-selecting.
func (c *Client) SelectResources(ctx context.Context, owner string, queries []outbound.ResourceQuery) ([]entity.Resource, error) {
	perAsset := make([]map[string]any, len(queries))
	for i, q := range queries {
		perAsset[i] = map[string]any{
			"assetId": q.AssetID,
			"amount":  strconv.FormatUint(q.Amount, 10),
		}
	}

	var data coinsToSpendData
	err := c.call(ctx, coinsToSpendQuery, map[string]any{
		"owner":         owner,
		"queryPerAsset": perAsset,
	}, &data)
	if err != nil {
		if isInsufficientCoins(err) {
			return nil, fmt.Errorf("%w: %v", outbound.ErrInsufficientResources, err)
		}
		return nil, err
	}

	var resources []entity.Resource
	for _, group := range data.CoinsToSpend {
		for _, coin := range group {
			amount, err := strconv.ParseUint(coin.Amount, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid coin amount %q: %w", coin.Amount, err)
			}
			resources = append(resources, entity.Resource{
				ID:      coin.UtxoID,
				Owner:   coin.Owner,
				Amount:  amount,
				AssetID: coin.AssetID,
			})
		}
	}
	return resources, nil
}

// EstimateFee queries the projected gas price and sizes the fee against the
// configured gas limit.
func (c *Client) EstimateFee(ctx context.Context, tx *entity.ScriptTransaction) (outbound.FeeEstimate, error) {
	var data gasPriceData
	err := c.call(ctx, gasPriceQuery, map[string]any{
		"blockHorizon": c.config.GasPriceBlockHorizon,
	}, &data)
	if err != nil {
		return outbound.FeeEstimate{}, err
	}

	gasPrice, err := strconv.ParseUint(data.EstimateGasPrice.GasPrice, 10, 64)
	if err != nil {
		return outbound.FeeEstimate{}, fmt.Errorf("invalid gas price %q: %w", data.EstimateGasPrice.GasPrice, err)
	}

	return outbound.FeeEstimate{
		GasLimit: c.config.GasLimit,
		MaxFee:   c.config.GasLimit * gasPrice,
	}, nil
}

// Fund selects base-asset coins from the identity covering the transaction's
// max fee and appends them, plus the matching change output.
func (c *Client) Fund(ctx context.Context, tx *entity.ScriptTransaction, identity entity.Identity) error {
	baseAssetID, err := c.BaseAssetID(ctx)
	if err != nil {
		return err
	}

	feeCoins, err := c.SelectResources(ctx, identity.Address, []outbound.ResourceQuery{
		{AssetID: baseAssetID, Amount: uint64(tx.MaxFee)},
	})
	if err != nil {
		return fmt.Errorf("selecting fee coins: %w", err)
	}

	tx.AddResources(feeCoins)
	tx.AddChangeOutput(identity.Address, baseAssetID)
	return nil
}

// Sign produces a compact recoverable signature over the transaction digest.
// Witness data is excluded from the digest so the signature stays valid after
// it is placed into its slot.
func (c *Client) Sign(ctx context.Context, tx *entity.ScriptTransaction, identity entity.Identity) (string, error) {
	digest, err := transactionDigest(tx)
	if err != nil {
		return "", fmt.Errorf("computing transaction digest: %w", err)
	}

	key := secp256k1.PrivKeyFromBytes(identity.PrivateKey)
	signature := ecdsa.SignCompact(key, digest, true)
	return hexutil.Encode(signature), nil
}

// Submit sends the transaction to the node and returns its assigned ID.
func (c *Client) Submit(ctx context.Context, tx *entity.ScriptTransaction) (outbound.SubmitResult, error) {
	var data submitData
	err := c.call(ctx, submitMutation, map[string]any{"tx": tx}, &data)
	if err != nil {
		return outbound.SubmitResult{}, err
	}
	if data.Submit.ID == "" {
		return outbound.SubmitResult{}, errors.New("node returned no transaction id")
	}

	c.logger.Info("transaction submitted", "transactionID", data.Submit.ID)
	return outbound.SubmitResult{TransactionID: data.Submit.ID}, nil
}

// GetBalance returns the owner's total balance of the asset.
func (c *Client) GetBalance(ctx context.Context, owner string, assetID string) (uint64, error) {
	var data balanceData
	err := c.call(ctx, balanceQuery, map[string]any{
		"owner":   owner,
		"assetId": assetID,
	}, &data)
	if err != nil {
		return 0, err
	}

	amount, err := strconv.ParseUint(data.Balance.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid balance %q: %w", data.Balance.Amount, err)
	}
	return amount, nil
}

// BaseAssetID returns the chain's fee asset, cached after the first query.
func (c *Client) BaseAssetID(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.baseAssetID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var data chainData
	if err := c.call(ctx, chainQuery, nil, &data); err != nil {
		return "", err
	}

	baseAssetID := data.Chain.ConsensusParameters.BaseAssetID
	if baseAssetID == "" {
		return "", errors.New("node returned no base asset id")
	}

	c.mu.Lock()
	c.baseAssetID = baseAssetID
	c.mu.Unlock()
	return baseAssetID, nil
}

// DeriveEscrowAddress delegates to the deterministic domain derivation.
func (c *Client) DeriveEscrowAddress(cfg entity.EscrowConfig) (string, error) {
	return cfg.DeriveAddress()
}

// transactionDigest hashes the transaction with all witness slots blanked, so
// the digest commits to inputs, outputs and fee fields but not to signatures.
func transactionDigest(tx *entity.ScriptTransaction) ([]byte, error) {
	unsigned := tx.Clone()
	for i := range unsigned.Witnesses {
		unsigned.Witnesses[i] = entity.EmptyWitness
	}

	encoded, err := json.Marshal(unsigned)
	if err != nil {
		return nil, err
	}

	h := sha3.New256()
	h.Write(encoded)
	return h.Sum(nil), nil
}

// isInsufficientCoins matches the node's error for owners that cannot cover a
// spend query.
func isInsufficientCoins(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not enough coins") || strings.Contains(msg, "insufficient")
}

// call makes a GraphQL request with retry and decodes the data payload into
// result.
func (c *Client) call(ctx context.Context, query string, variables map[string]any, result any) error {
	reqBytes, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var gqlResp graphqlResponse
	err = c.doWithRetry(ctx, func() error {
		// Reset response to avoid leftover data from previous attempts
		gqlResp = graphqlResponse{}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(reqBytes))
		if err != nil {
			return &nonRetryableError{err: fmt.Errorf("failed to create request: %w", err)}
		}
		httpReq.Header.Set("Content-Type", "application/json")

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("HTTP %d: server error", httpResp.StatusCode)
		}

		respBytes, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if err := json.Unmarshal(respBytes, &gqlResp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		if len(gqlResp.Errors) > 0 {
			return &nonRetryableError{err: fmt.Errorf("node error: %s", gqlResp.Errors[0].Message)}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(gqlResp.Data, result); err != nil {
			return fmt.Errorf("failed to parse data payload: %w", err)
		}
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

// doWithRetry executes fn with exponential backoff retry for transient failures.
// Returns immediately on non-retryable errors or context cancellation.
func (c *Client) doWithRetry(ctx context.Context, fn func() error) error {
	backoff := c.config.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var nonRetryable *nonRetryableError
		if errors.As(err, &nonRetryable) {
			return nonRetryable.err
		}

		lastErr = err

		if attempt == c.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * c.config.BackoffFactor)
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}

	return fmt.Errorf("after %d retries: %w", c.config.MaxRetries, lastErr)
}
