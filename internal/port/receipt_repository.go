package port

import (
	"context"

	"github.com/google/uuid"

	"recivo/internal/domain"
)

// ReceiptRepository abstracts receipt persistence.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *domain.Receipt) error
	GetByID(ctx context.Context, userID, receiptID uuid.UUID) (*domain.Receipt, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status domain.ReceiptStatus, offset, limit int) ([]domain.Receipt, int, error)
	// UpdateStatus advances the state machine. It must refuse to overwrite a
	// terminal status with domain.ErrReceiptTerminal.
	UpdateStatus(ctx context.Context, userID, receiptID uuid.UUID, status domain.ReceiptStatus) error
	// UpdateResults writes extraction, merchant, category and the optional
	// top-level amount/currency/date fields together with the new status.
	UpdateResults(ctx context.Context, receipt *domain.Receipt) error
}
