// Package settlement implements the order-fill protocol: it transforms a
// validated fill request into a single submitted, atomic settlement
// transaction, or fails with a classified error.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/services/signerpool"
)

// EngineConfig holds configuration for the settlement engine.
type EngineConfig struct {
	// Logger is the structured logger for the engine.
	Logger *slog.Logger

	// Fills is the optional audit repository. Nil disables persistence.
	Fills outbound.FillRepository

	// Metrics is the optional metrics recorder. Nil disables recording.
	Metrics outbound.MetricsRecorder
}

// Engine drives fill requests through the settlement pipeline. Each request
// runs on its own goroutine-local state; the signer pool is the only shared
// mutable structure, and no lock is held across blocking ledger or oracle
// calls.
type Engine struct {
	pool     *signerpool.Pool
	ledger   outbound.LedgerClient
	oracle   outbound.PriceOracle
	registry *entity.Registry
	fills    outbound.FillRepository
	metrics  outbound.MetricsRecorder
	logger   *slog.Logger
}

// NewEngine creates a settlement engine.
func NewEngine(config EngineConfig, pool *signerpool.Pool, ledger outbound.LedgerClient, oracle outbound.PriceOracle, registry *entity.Registry) (*Engine, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger cannot be nil")
	}
	if oracle == nil {
		return nil, fmt.Errorf("oracle cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		pool:     pool,
		ledger:   ledger,
		oracle:   oracle,
		registry: registry,
		fills:    config.Fills,
		metrics:  config.Metrics,
		logger:   logger.With("component", "settlement-engine"),
	}, nil
}

// FillOrder settles one fill request. The pipeline is linear with no
// backtracking: each stage either advances or the whole operation fails with a
// classified error. The funding identity is released on every exit path.
func (e *Engine) FillOrder(ctx context.Context, req *entity.FillRequest) (*entity.FillResult, error) {
	started := time.Now()
	logger := e.logger.With(
		"fillID", req.ID,
		"sellAsset", req.SellAsset,
		"buyAsset", req.BuyAsset,
		"sellAmount", req.SellAmount,
	)

	// Stage 1: acquire a funding identity. Unavailable is backpressure, not
	// an error; the caller may retry with backoff.
	stageStart := time.Now()
	lease, ok := e.pool.Acquire()
	if !ok {
		logger.Warn("no funding identity available")
		err := failf(CodeBackpressure, "no available signer at the moment, try again later")
		e.finish(ctx, logger, req, nil, err, started)
		return nil, err
	}
	e.observeStage(ctx, logger, "acquire_lease", stageStart)
	defer e.pool.Release(lease)

	result, err := e.fill(ctx, logger, lease.Identity, req)
	e.finish(ctx, logger, req, result, err, started)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) fill(ctx context.Context, logger *slog.Logger, identity entity.Identity, req *entity.FillRequest) (*entity.FillResult, error) {
	// Stage 2: structural validation. Everything here happens before any
	// side-effecting ledger call.
	stageStart := time.Now()
	sellAsset, buyAsset, err := e.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	sellAssetID := sellAsset.AssetID()
	buyAssetID := buyAsset.AssetID()

	baseAssetID, lerr := e.ledger.BaseAssetID(ctx)
	if lerr != nil {
		return nil, wrapf(CodeLedger, lerr, "querying base asset")
	}

	if req.Escrow == nil {
		if err := validateDirectInputs(req, sellAssetID, baseAssetID); err != nil {
			return nil, err
		}
	}
	e.observeStage(ctx, logger, "validate", stageStart)

	// Stage 3 (escrow variant): fund the escrow. The one observable side
	// effect that survives a later failure; recovery is the escrow's own
	// cancellation path, not a compensating transaction from the engine.
	if req.Escrow != nil {
		stageStart = time.Now()
		funding, lerr := e.ledger.Submit(ctx, req.Escrow.FundingTx)
		if lerr != nil {
			return nil, wrapf(CodeLedger, lerr, "submitting escrow funding transaction")
		}
		logger.Info("escrow funded", "fundingTxID", funding.TransactionID)
		e.observeStage(ctx, logger, "fund_escrow", stageStart)
	}

	// Stage 4: price both legs and size the buy leg.
	stageStart = time.Now()
	buyAmount, err := e.priceBuyLeg(ctx, logger, req)
	if err != nil {
		return nil, err
	}
	e.observeStage(ctx, logger, "price", stageStart)

	// Stage 5: select solver-owned resources covering the buy leg.
	stageStart = time.Now()
	buyResources, lerr := e.ledger.SelectResources(ctx, identity.Address, []outbound.ResourceQuery{
		{AssetID: buyAssetID, Amount: buyAmount},
	})
	if lerr != nil {
		if errors.Is(lerr, outbound.ErrInsufficientResources) {
			return nil, wrapf(CodeInsufficientLiquidity, lerr, "solver cannot cover %d of %s", buyAmount, req.BuyAsset)
		}
		return nil, wrapf(CodeLedger, lerr, "selecting buy resources")
	}
	e.observeStage(ctx, logger, "select_buy_resources", stageStart)

	// Stages 6-7 (escrow variant): pick a single escrow resource and verify
	// the escrow address against its own configuration.
	var escrowResource *entity.Resource
	if req.Escrow != nil {
		stageStart = time.Now()
		escrowResource, err = e.selectEscrowResource(ctx, req, sellAssetID)
		if err != nil {
			return nil, err
		}
		e.observeStage(ctx, logger, "select_escrow_resource", stageStart)

		stageStart = time.Now()
		derived, lerr := e.ledger.DeriveEscrowAddress(req.Escrow.Config)
		if lerr != nil {
			return nil, wrapf(CodeLedger, lerr, "deriving escrow address")
		}
		if !strings.EqualFold(derived, req.Escrow.Address) {
			return nil, failf(CodeInvalidEscrowParameters,
				"escrow address %s does not match derived address %s", req.Escrow.Address, derived)
		}
		e.observeStage(ctx, logger, "verify_escrow_address", stageStart)
	}

	// Stage 8: assembly. The output list is rebuilt from scratch so nothing
	// the caller supplied can leak into the settlement transaction.
	stageStart = time.Now()
	tx := req.Tx.Clone()
	tx.ClearOutputs()
	tx.AddCoinOutput(req.Recipient, buyAmount, buyAssetID)
	tx.AddCoinOutput(identity.Address, req.SellAmount, sellAssetID)
	if escrowResource != nil {
		tx.AddResources([]entity.Resource{*escrowResource})
		tx.AddChangeOutput(req.Escrow.Address, sellAssetID)
	}
	tx.AddResources(buyResources)
	tx.AddChangeOutput(identity.Address, buyAssetID)
	e.observeStage(ctx, logger, "assemble", stageStart)

	// Stage 9: fee estimation. The caller's fee fields are placeholders and
	// are never trusted.
	stageStart = time.Now()
	tx.GasLimit = 0
	tx.MaxFee = 0
	estimate, lerr := e.ledger.EstimateFee(ctx, tx)
	if lerr != nil {
		return nil, wrapf(CodeLedger, lerr, "estimating fee")
	}
	tx.GasLimit = entity.Amount(estimate.GasLimit)
	tx.MaxFee = entity.Amount(estimate.MaxFee)
	e.observeStage(ctx, logger, "estimate_fee", stageStart)

	// Stage 10: fund the fee and sign. The signature must land in the witness
	// slot bound to the buy-asset input; anywhere else would let a
	// counterparty forge the remainder of the transaction.
	stageStart = time.Now()
	if lerr := e.ledger.Fund(ctx, tx, identity); lerr != nil {
		return nil, wrapf(CodeLedger, lerr, "funding transaction fee")
	}
	if err := checkBalanced(tx); err != nil {
		return nil, err
	}
	witness, lerr := e.ledger.Sign(ctx, tx, identity)
	if lerr != nil {
		return nil, wrapf(CodeLedger, lerr, "signing transaction")
	}
	witnessIndex, ok := tx.WitnessIndexForAsset(buyAssetID)
	if !ok {
		return nil, failf(CodeWitnessBinding, "no input spends the buy asset %s", req.BuyAsset)
	}
	if err := tx.SetWitness(witnessIndex, witness); err != nil {
		return nil, wrapf(CodeWitnessBinding, err, "attaching witness")
	}
	e.observeStage(ctx, logger, "sign", stageStart)

	// Stage 11: submit and await provisional confirmation.
	stageStart = time.Now()
	submitted, lerr := e.ledger.Submit(ctx, tx)
	if lerr != nil {
		return nil, wrapf(CodeLedger, lerr, "submitting settlement transaction")
	}
	e.observeStage(ctx, logger, "submit", stageStart)

	logger.Info("fill settled",
		"transactionID", submitted.TransactionID,
		"buyAmount", buyAmount,
	)

	return &entity.FillResult{
		FillID:        req.ID,
		TransactionID: submitted.TransactionID,
		BuyAmount:     buyAmount,
		Tx:            tx,
	}, nil
}

// validate runs the structural checks of stage 2 and resolves both assets.
func (e *Engine) validate(ctx context.Context, req *entity.FillRequest) (entity.Asset, entity.Asset, error) {
	var zero entity.Asset

	if err := req.Validate(); err != nil {
		return zero, zero, wrapf(CodeValidation, err, "invalid request")
	}

	sellAsset, ok := e.registry.Lookup(req.SellAsset)
	if !ok {
		return zero, zero, failf(CodeValidation, "sell token %q not found", req.SellAsset)
	}
	buyAsset, ok := e.registry.Lookup(req.BuyAsset)
	if !ok {
		return zero, zero, failf(CodeValidation, "buy token %q not found", req.BuyAsset)
	}

	for _, name := range []string{sellAsset.Name, buyAsset.Name} {
		exists, err := e.oracle.Exists(ctx, name)
		if err != nil {
			return zero, zero, wrapf(CodeLedger, err, "checking oracle feed for %s", name)
		}
		if !exists {
			return zero, zero, failf(CodeValidation, "no price feed for token %q", name)
		}
	}

	return sellAsset, buyAsset, nil
}

// validateDirectInputs checks the caller's sell-leg inputs in the direct
// variant: coin inputs only, sell or base asset only, and a total covering
// the sell amount.
func validateDirectInputs(req *entity.FillRequest, sellAssetID, baseAssetID string) error {
	var inputTotal uint64
	for i, in := range req.Tx.Inputs {
		if in.Type != entity.InputTypeCoin {
			return failf(CodeValidation, "input %d: only coin inputs are supported", i)
		}
		if in.AssetID != sellAssetID && in.AssetID != baseAssetID {
			return failf(CodeValidation, "input %d: unexpected asset %s", i, in.AssetID)
		}
		inputTotal += uint64(in.Amount)
	}
	if inputTotal < req.SellAmount {
		return failf(CodeInsufficientFunds, "inputs total %d below sell amount %d", inputTotal, req.SellAmount)
	}
	return nil
}

// priceBuyLeg fetches both quotes and computes
// buyAmount = floor(sellAmount * sellPrice / buyPrice).
func (e *Engine) priceBuyLeg(ctx context.Context, logger *slog.Logger, req *entity.FillRequest) (uint64, error) {
	sellQuote, err := e.oracle.GetPrice(ctx, req.SellAsset)
	if err != nil {
		if errors.Is(err, outbound.ErrAssetNotFound) {
			return 0, wrapf(CodeValidation, err, "no price for sell token %q", req.SellAsset)
		}
		return 0, wrapf(CodeLedger, err, "fetching sell price")
	}
	buyQuote, err := e.oracle.GetPrice(ctx, req.BuyAsset)
	if err != nil {
		if errors.Is(err, outbound.ErrAssetNotFound) {
			return 0, wrapf(CodeValidation, err, "no price for buy token %q", req.BuyAsset)
		}
		return 0, wrapf(CodeLedger, err, "fetching buy price")
	}
	if buyQuote.Price.IsZero() || sellQuote.Price.IsZero() {
		return 0, failf(CodeValidation, "oracle returned a zero price")
	}

	totalValue := decimal.NewFromUint64(req.SellAmount).Mul(sellQuote.Price)
	buyAmount := totalValue.DivRound(buyQuote.Price, 16).Floor()
	if !buyAmount.IsPositive() {
		return 0, failf(CodeValidation, "computed buy amount is zero")
	}
	big := buyAmount.BigInt()
	if !big.IsUint64() {
		return 0, failf(CodeValidation, "computed buy amount overflows u64")
	}

	logger.Debug("priced fill",
		"sellPrice", sellQuote.Price,
		"sellPriceAsOf", sellQuote.AsOf,
		"buyPrice", buyQuote.Price,
		"buyPriceAsOf", buyQuote.AsOf,
		"buyAmount", big.Uint64(),
	)

	return big.Uint64(), nil
}

// selectEscrowResource finds one escrow-owned resource covering the sell
// amount. Single-resource match only; escrow funds are never combined across
// resources.
func (e *Engine) selectEscrowResource(ctx context.Context, req *entity.FillRequest, sellAssetID string) (*entity.Resource, error) {
	candidates, err := e.ledger.SelectResources(ctx, req.Escrow.Address, []outbound.ResourceQuery{
		{AssetID: sellAssetID, Amount: req.SellAmount},
	})
	if err != nil {
		if errors.Is(err, outbound.ErrInsufficientResources) {
			return nil, wrapf(CodeInsufficientEscrowFunds, err, "escrow cannot cover %d of %s", req.SellAmount, req.SellAsset)
		}
		return nil, wrapf(CodeLedger, err, "selecting escrow resources")
	}
	for _, res := range candidates {
		if res.AssetID == sellAssetID && res.Amount >= req.SellAmount {
			r := res
			return &r, nil
		}
	}
	return nil, failf(CodeInsufficientEscrowFunds,
		"no single escrow resource covers %d of %s", req.SellAmount, req.SellAsset)
}

// checkBalanced enforces the per-asset invariant before submission: coin
// inputs must cover every coin output of the same asset.
func checkBalanced(tx *entity.ScriptTransaction) error {
	required := make(map[string]uint64)
	for _, out := range tx.Outputs {
		if out.Type == entity.OutputTypeCoin {
			required[out.AssetID] += uint64(out.Amount)
		}
	}
	for assetID, amount := range required {
		if have := tx.CoinInputTotal(assetID); have < amount {
			return failf(CodeInsufficientFunds,
				"inputs cover %d of %d required for asset %s", have, amount, assetID)
		}
	}
	return nil
}

func (e *Engine) observeStage(ctx context.Context, logger *slog.Logger, stage string, start time.Time) {
	elapsed := time.Since(start)
	logger.Debug("stage complete", "stage", stage, "elapsed", elapsed)
	if e.metrics != nil {
		e.metrics.RecordStageLatency(ctx, stage, elapsed)
	}
}

// finish records the outcome: one metric point and one audit row per attempt.
func (e *Engine) finish(ctx context.Context, logger *slog.Logger, req *entity.FillRequest, result *entity.FillResult, err error, started time.Time) {
	elapsed := time.Since(started)

	status := "success"
	errorCode := ""
	if err != nil {
		status = "error"
		errorCode = string(CodeOf(err))
		logger.Error("fill failed", "errorCode", errorCode, "elapsed", elapsed, "error", err)
	}

	if e.metrics != nil {
		outcome := status
		if errorCode != "" {
			outcome = errorCode
		}
		e.metrics.RecordFill(ctx, outcome, elapsed)
	}

	if e.fills == nil {
		return
	}
	record := entity.FillRecord{
		FillID:     req.ID,
		SellAsset:  req.SellAsset,
		BuyAsset:   req.BuyAsset,
		SellAmount: req.SellAmount,
		Recipient:  req.Recipient,
		Status:     status,
		ErrorCode:  errorCode,
		StartedAt:  started,
		FinishedAt: started.Add(elapsed),
	}
	if result != nil {
		record.TransactionID = result.TransactionID
		record.BuyAmount = result.BuyAmount
	}
	if rerr := e.fills.RecordFill(ctx, record); rerr != nil {
		logger.Error("recording fill failed", "error", rerr)
	}
}
