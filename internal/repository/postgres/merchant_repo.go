package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"recivo/internal/domain"
	"recivo/internal/port"
)

type merchantRepo struct {
	db *sqlx.DB
}

// NewMerchantRepo creates a new PostgreSQL-backed MerchantRepository.
func NewMerchantRepo(db *sqlx.DB) port.MerchantRepository {
	return &merchantRepo{db: db}
}

func (r *merchantRepo) Create(ctx context.Context, merchant *domain.Merchant) error {
	now := time.Now().UTC()
	merchant.CreatedAt = now
	merchant.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO merchants (
			id, user_id, canonical_name, aliases,
			receipt_count, total_spend, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		merchant.ID, merchant.UserID, merchant.CanonicalName, merchant.Aliases,
		merchant.ReceiptCount, merchant.TotalSpend, merchant.CreatedAt, merchant.UpdatedAt)
	if err != nil {
		return fmt.Errorf("merchantRepo.Create: %w", err)
	}
	return nil
}

func (r *merchantRepo) GetByID(ctx context.Context, userID, merchantID uuid.UUID) (*domain.Merchant, error) {
	var merchant domain.Merchant
	err := r.db.GetContext(ctx, &merchant,
		"SELECT * FROM merchants WHERE id = $1 AND user_id = $2", merchantID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("merchantRepo.GetByID: %w", err)
	}
	return &merchant, nil
}

func (r *merchantRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Merchant, error) {
	var merchants []domain.Merchant
	err := r.db.SelectContext(ctx, &merchants,
		"SELECT * FROM merchants WHERE user_id = $1 ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("merchantRepo.ListByUser: %w", err)
	}
	return merchants, nil
}

func (r *merchantRepo) Update(ctx context.Context, merchant *domain.Merchant) error {
	merchant.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE merchants SET
			canonical_name = $1, aliases = $2,
			receipt_count = $3, total_spend = $4, updated_at = $5
		 WHERE id = $6 AND user_id = $7`,
		merchant.CanonicalName, merchant.Aliases,
		merchant.ReceiptCount, merchant.TotalSpend, merchant.UpdatedAt,
		merchant.ID, merchant.UserID)
	if err != nil {
		return fmt.Errorf("merchantRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
