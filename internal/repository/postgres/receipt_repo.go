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

type receiptRepo struct {
	db *sqlx.DB
}

// NewReceiptRepo creates a new PostgreSQL-backed ReceiptRepository.
func NewReceiptRepo(db *sqlx.DB) port.ReceiptRepository {
	return &receiptRepo{db: db}
}

func (r *receiptRepo) Create(ctx context.Context, receipt *domain.Receipt) error {
	now := time.Now().UTC()
	receipt.CreatedAt = now
	receipt.UpdatedAt = now

	query := `INSERT INTO receipts (
		id, user_id, status, source_channel,
		file_name, content_type, file_size, s3_bucket, s3_key,
		extraction, merchant_id,
		category_id, category_name, category_confidence, category_assigned_by,
		total_amount, currency, receipt_date,
		processing_error, processed_at, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9,
		$10, $11,
		$12, $13, $14, $15,
		$16, $17, $18,
		$19, $20, $21, $22
	)`

	_, err := r.db.ExecContext(ctx, query,
		receipt.ID, receipt.UserID, receipt.Status, receipt.SourceChannel,
		receipt.FileName, receipt.ContentType, receipt.FileSize, receipt.S3Bucket, receipt.S3Key,
		receipt.Extraction, receipt.MerchantID,
		receipt.CategoryID, receipt.CategoryName, receipt.CategoryConfidence, receipt.CategoryAssignedBy,
		receipt.TotalAmount, receipt.Currency, receipt.ReceiptDate,
		receipt.ProcessingError, receipt.ProcessedAt, receipt.CreatedAt, receipt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("receiptRepo.Create: %w", err)
	}
	return nil
}

func (r *receiptRepo) GetByID(ctx context.Context, userID, receiptID uuid.UUID) (*domain.Receipt, error) {
	var receipt domain.Receipt
	err := r.db.GetContext(ctx, &receipt,
		"SELECT * FROM receipts WHERE id = $1 AND user_id = $2", receiptID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("receiptRepo.GetByID: %w", err)
	}
	return &receipt, nil
}

func (r *receiptRepo) ListByUser(ctx context.Context, userID uuid.UUID, status domain.ReceiptStatus, offset, limit int) ([]domain.Receipt, int, error) {
	where := "WHERE user_id = $1"
	args := []interface{}{userID}
	if status != "" {
		where += " AND status = $2"
		args = append(args, status)
	}

	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM receipts "+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("receiptRepo.ListByUser count: %w", err)
	}

	query := fmt.Sprintf("SELECT * FROM receipts %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var receipts []domain.Receipt
	err = r.db.SelectContext(ctx, &receipts, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("receiptRepo.ListByUser: %w", err)
	}
	return receipts, total, nil
}

func (r *receiptRepo) UpdateStatus(ctx context.Context, userID, receiptID uuid.UUID, status domain.ReceiptStatus) error {
	// Terminal statuses are frozen; the WHERE clause excludes them so a
	// late processing goroutine cannot clobber a settled receipt.
	result, err := r.db.ExecContext(ctx,
		`UPDATE receipts SET status = $1, updated_at = $2
		 WHERE id = $3 AND user_id = $4 AND status NOT IN ($5, $6)`,
		status, time.Now().UTC(), receiptID, userID,
		domain.ReceiptStatusFinal, domain.ReceiptStatusNeedsReview)
	if err != nil {
		return fmt.Errorf("receiptRepo.UpdateStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish a missing receipt from a terminal one.
		var current domain.ReceiptStatus
		err := r.db.GetContext(ctx, &current,
			"SELECT status FROM receipts WHERE id = $1 AND user_id = $2", receiptID, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("receiptRepo.UpdateStatus check: %w", err)
		}
		if current.IsTerminal() {
			return domain.ErrReceiptTerminal
		}
		return domain.ErrNotFound
	}
	return nil
}

func (r *receiptRepo) UpdateResults(ctx context.Context, receipt *domain.Receipt) error {
	receipt.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE receipts SET
			status = $1, extraction = $2, merchant_id = $3,
			category_id = $4, category_name = $5, category_confidence = $6, category_assigned_by = $7,
			total_amount = $8, currency = $9, receipt_date = $10,
			processing_error = $11, processed_at = $12, updated_at = $13
		 WHERE id = $14 AND user_id = $15 AND status NOT IN ($16, $17)`,
		receipt.Status, receipt.Extraction, receipt.MerchantID,
		receipt.CategoryID, receipt.CategoryName, receipt.CategoryConfidence, receipt.CategoryAssignedBy,
		receipt.TotalAmount, receipt.Currency, receipt.ReceiptDate,
		receipt.ProcessingError, receipt.ProcessedAt, receipt.UpdatedAt,
		receipt.ID, receipt.UserID,
		domain.ReceiptStatusFinal, domain.ReceiptStatusNeedsReview)
	if err != nil {
		return fmt.Errorf("receiptRepo.UpdateResults: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var current domain.ReceiptStatus
		err := r.db.GetContext(ctx, &current,
			"SELECT status FROM receipts WHERE id = $1 AND user_id = $2", receipt.ID, receipt.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("receiptRepo.UpdateResults check: %w", err)
		}
		if current.IsTerminal() {
			return domain.ErrReceiptTerminal
		}
		return domain.ErrNotFound
	}
	return nil
}
