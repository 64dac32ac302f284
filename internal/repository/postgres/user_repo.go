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

type userRepo struct {
	db *sqlx.DB
}

// NewUserRepo creates a new PostgreSQL-backed UserRepository.
func NewUserRepo(db *sqlx.DB) port.UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		"SELECT * FROM users WHERE id = $1", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return &user, nil
}

func (r *userRepo) GetByForwardingAlias(ctx context.Context, alias string) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		"SELECT * FROM users WHERE forwarding_alias = $1", alias)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByForwardingAlias: %w", err)
	}
	return &user, nil
}

func (r *userRepo) GetByBotChatID(ctx context.Context, chatID int64) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		"SELECT * FROM users WHERE bot_chat_id = $1", chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByBotChatID: %w", err)
	}
	return &user, nil
}

func (r *userRepo) AliasExists(ctx context.Context, alias string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM users WHERE forwarding_alias = $1)", alias)
	if err != nil {
		return false, fmt.Errorf("userRepo.AliasExists: %w", err)
	}
	return exists, nil
}

func (r *userRepo) SetForwardingAlias(ctx context.Context, userID uuid.UUID, alias string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET forwarding_alias = $1, updated_at = $2 WHERE id = $3",
		alias, time.Now().UTC(), userID)
	if err != nil {
		// The unique index on forwarding_alias closes the race between
		// AliasExists and this write.
		if isUniqueViolation(err, "forwarding_alias") {
			return domain.ErrDuplicateAlias
		}
		return fmt.Errorf("userRepo.SetForwardingAlias: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepo) CheckAndIncrementQuota(ctx context.Context, userID uuid.UUID, planLimits map[domain.UserPlan]int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("userRepo.CheckAndIncrementQuota begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var user domain.User
	err = tx.GetContext(ctx, &user,
		"SELECT * FROM users WHERE id = $1 FOR UPDATE", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("userRepo.CheckAndIncrementQuota select: %w", err)
	}

	limit, ok := planLimits[user.Plan]
	if !ok {
		limit = planLimits[domain.UserPlanFree]
	}
	if user.MonthlyReceipts >= limit {
		return domain.ErrQuotaExceeded
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE users SET monthly_receipts = monthly_receipts + 1, updated_at = $1 WHERE id = $2",
		time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("userRepo.CheckAndIncrementQuota update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("userRepo.CheckAndIncrementQuota commit: %w", err)
	}
	return nil
}
