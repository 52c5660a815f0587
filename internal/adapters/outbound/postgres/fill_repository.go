// fill_repository.go provides a PostgreSQL implementation of FillRepository.
//
// This adapter persists the fill audit trail: one row per fill attempt,
// successful or not. The schema is defined in
// migrations/001_initial_schema.sql and is applied via the Migrate() method.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
	"github.com/bajpai244/fuel-predicate-orderbook/internal/ports/outbound"
)

//go:embed migrations/001_initial_schema.sql
var initialSchema string

// Compile-time check that FillRepository implements outbound.FillRepository
var _ outbound.FillRepository = (*FillRepository)(nil)

// ErrFillNotFound is returned when no fill exists for the requested ID.
var ErrFillNotFound = errors.New("fill not found")

// FillRepository is a PostgreSQL implementation of the outbound.FillRepository port.
type FillRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewFillRepository creates a new PostgreSQL fill repository.
func NewFillRepository(pool *pgxpool.Pool, logger *slog.Logger) (*FillRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FillRepository{pool: pool, logger: logger}, nil
}

// Migrate creates the fills table if it doesn't exist.
func (r *FillRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, initialSchema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// RecordFill persists one fill attempt. Re-recording the same fill ID updates
// the row, so a retried write after a transient failure stays idempotent.
func (r *FillRepository) RecordFill(ctx context.Context, record entity.FillRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO fills (
			fill_id, sell_asset, buy_asset, sell_amount, buy_amount,
			recipient, transaction_id, status, error_code, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (fill_id) DO UPDATE SET
			buy_amount = EXCLUDED.buy_amount,
			transaction_id = EXCLUDED.transaction_id,
			status = EXCLUDED.status,
			error_code = EXCLUDED.error_code,
			finished_at = EXCLUDED.finished_at
	`,
		record.FillID,
		record.SellAsset,
		record.BuyAsset,
		strconv.FormatUint(record.SellAmount, 10),
		strconv.FormatUint(record.BuyAmount, 10),
		record.Recipient,
		nullable(record.TransactionID),
		record.Status,
		nullable(record.ErrorCode),
		record.StartedAt,
		record.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting fill record: %w", err)
	}
	return nil
}

// GetByFillID retrieves one fill attempt by its fill ID.
func (r *FillRepository) GetByFillID(ctx context.Context, fillID string) (entity.FillRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT fill_id, sell_asset, buy_asset, sell_amount::text, buy_amount::text,
		       recipient, COALESCE(transaction_id, ''), status, COALESCE(error_code, ''),
		       started_at, finished_at
		FROM fills
		WHERE fill_id = $1
	`, fillID)

	record, err := scanFillRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.FillRecord{}, fmt.Errorf("%w: %s", ErrFillNotFound, fillID)
	}
	if err != nil {
		return entity.FillRecord{}, fmt.Errorf("querying fill: %w", err)
	}
	return record, nil
}

// ListRecent retrieves the most recent fill attempts, newest first.
func (r *FillRepository) ListRecent(ctx context.Context, limit int) ([]entity.FillRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT fill_id, sell_asset, buy_asset, sell_amount::text, buy_amount::text,
		       recipient, COALESCE(transaction_id, ''), status, COALESCE(error_code, ''),
		       started_at, finished_at
		FROM fills
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent fills: %w", err)
	}
	defer rows.Close()

	var records []entity.FillRecord
	for rows.Next() {
		record, err := scanFillRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fill record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fill records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFillRecord(row rowScanner) (entity.FillRecord, error) {
	var record entity.FillRecord
	var sellAmount, buyAmount string

	err := row.Scan(
		&record.FillID, &record.SellAsset, &record.BuyAsset, &sellAmount, &buyAmount,
		&record.Recipient, &record.TransactionID, &record.Status, &record.ErrorCode,
		&record.StartedAt, &record.FinishedAt,
	)
	if err != nil {
		return entity.FillRecord{}, err
	}

	record.SellAmount, err = strconv.ParseUint(sellAmount, 10, 64)
	if err != nil {
		return entity.FillRecord{}, fmt.Errorf("invalid sell amount %q: %w", sellAmount, err)
	}
	record.BuyAmount, err = strconv.ParseUint(buyAmount, 10, 64)
	if err != nil {
		return entity.FillRecord{}, fmt.Errorf("invalid buy amount %q: %w", buyAmount, err)
	}
	return record, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
