package outbound

import (
	"context"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
)

// FillRepository persists the audit trail of fill attempts.
type FillRepository interface {
	// RecordFill stores one completed fill attempt, successful or failed.
	RecordFill(ctx context.Context, record entity.FillRecord) error
}
