// Package memory provides in-memory implementations of the outbound ports for
// testing and local development. All adapters here are thread-safe; state is
// lost on process restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/pkg/hexutil"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

// Compile-time check that Ledger implements outbound.LedgerClient.
var _ outbound.LedgerClient = (*Ledger)(nil)

// Ledger is an in-memory LedgerClient. Resources are registered per owner;
// selection is greedy in registration order. Individual operations can be
// forced to fail for pipeline tests.
type Ledger struct {
	mu          sync.Mutex
	baseAssetID string
	resources   map[string][]entity.Resource
	estimate    outbound.FeeEstimate
	submitted   []*entity.ScriptTransaction
	nextTxID    uint64

	// Injectable failures, one per pipeline interaction.
	FailSelect   error
	FailEstimate error
	FailFund     error
	FailSign     error
	FailSubmit   error
}

// NewLedger creates an in-memory ledger with the given base (fee) asset.
func NewLedger(baseAssetID string) *Ledger {
	return &Ledger{
		baseAssetID: baseAssetID,
		resources:   make(map[string][]entity.Resource),
		estimate:    outbound.FeeEstimate{GasLimit: 100000, MaxFee: 1000},
	}
}

// AddResource registers a spendable resource for its owner.
func (l *Ledger) AddResource(res entity.Resource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resources[res.Owner] = append(l.resources[res.Owner], res)
}

// SetFeeEstimate overrides the estimate returned by EstimateFee.
func (l *Ledger) SetFeeEstimate(estimate outbound.FeeEstimate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.estimate = estimate
}

// Submitted returns every transaction accepted so far.
func (l *Ledger) Submitted() []*entity.ScriptTransaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*entity.ScriptTransaction(nil), l.submitted...)
}

// SelectResources greedily picks the owner's resources until each query is
// covered.
func (l *Ledger) SelectResources(ctx context.Context, owner string, queries []outbound.ResourceQuery) ([]entity.Resource, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailSelect != nil {
		return nil, l.FailSelect
	}

	var selected []entity.Resource
	for _, q := range queries {
		var covered uint64
		for _, res := range l.resources[owner] {
			if res.AssetID != q.AssetID {
				continue
			}
			selected = append(selected, res)
			covered += res.Amount
			if covered >= q.Amount {
				break
			}
		}
		if covered < q.Amount {
			return nil, fmt.Errorf("%w: %s has %d of %d for asset %s",
				outbound.ErrInsufficientResources, owner, covered, q.Amount, q.AssetID)
		}
	}
	return selected, nil
}

// EstimateFee returns the configured estimate.
func (l *Ledger) EstimateFee(ctx context.Context, tx *entity.ScriptTransaction) (outbound.FeeEstimate, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailEstimate != nil {
		return outbound.FeeEstimate{}, l.FailEstimate
	}
	return l.estimate, nil
}

// Fund appends a synthetic base-asset input covering the fee plus the matching
// change output, the way the node's fund endpoint balances a transaction.
func (l *Ledger) Fund(ctx context.Context, tx *entity.ScriptTransaction, identity entity.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailFund != nil {
		return l.FailFund
	}

	tx.AddResources([]entity.Resource{{
		ID:      l.syntheticID("fee", identity.Address),
		Owner:   identity.Address,
		Amount:  uint64(tx.MaxFee),
		AssetID: l.baseAssetID,
	}})
	tx.AddChangeOutput(identity.Address, l.baseAssetID)
	return nil
}

// Sign returns a deterministic fake witness derived from the signer address.
func (l *Ledger) Sign(ctx context.Context, tx *entity.ScriptTransaction, identity entity.Identity) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailSign != nil {
		return "", l.FailSign
	}

	h := sha3.New256()
	h.Write([]byte(identity.Address))
	return hexutil.Encode(h.Sum(nil)), nil
}

// Submit records the transaction and returns a synthetic transaction ID.
func (l *Ledger) Submit(ctx context.Context, tx *entity.ScriptTransaction) (outbound.SubmitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailSubmit != nil {
		return outbound.SubmitResult{}, l.FailSubmit
	}

	l.nextTxID++
	l.submitted = append(l.submitted, tx.Clone())
	return outbound.SubmitResult{TransactionID: fmt.Sprintf("0x%064x", l.nextTxID)}, nil
}

// GetBalance sums the owner's registered resources for the asset.
func (l *Ledger) GetBalance(ctx context.Context, owner string, assetID string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var total uint64
	for _, res := range l.resources[owner] {
		if res.AssetID == assetID {
			total += res.Amount
		}
	}
	return total, nil
}

// BaseAssetID returns the configured fee asset.
func (l *Ledger) BaseAssetID(ctx context.Context) (string, error) {
	return l.baseAssetID, nil
}

// DeriveEscrowAddress delegates to the pure domain derivation.
func (l *Ledger) DeriveEscrowAddress(cfg entity.EscrowConfig) (string, error) {
	return cfg.DeriveAddress()
}

func (l *Ledger) syntheticID(kind, owner string) string {
	h := sha3.New256()
	h.Write([]byte(kind))
	h.Write([]byte(owner))
	h.Write([]byte{byte(l.nextTxID)})
	return hexutil.Encode(h.Sum(nil))
}
