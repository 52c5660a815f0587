package memory

import (
	"context"
	"sync"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

// Compile-time check that FillRepository implements outbound.FillRepository.
var _ outbound.FillRepository = (*FillRepository)(nil)

// FillRepository is an in-memory FillRepository.
type FillRepository struct {
	mu      sync.Mutex
	records []entity.FillRecord
}

// NewFillRepository creates an empty in-memory fill repository.
func NewFillRepository() *FillRepository {
	return &FillRepository{}
}

// RecordFill stores the record.
func (r *FillRepository) RecordFill(ctx context.Context, record entity.FillRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

// Records returns a copy of every stored record.
func (r *FillRepository) Records() []entity.FillRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.FillRecord(nil), r.records...)
}
