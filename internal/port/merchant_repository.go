package port

import (
	"context"

	"github.com/google/uuid"

	"recivo/internal/domain"
)

// MerchantRepository abstracts per-user merchant persistence.
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	GetByID(ctx context.Context, userID, merchantID uuid.UUID) (*domain.Merchant, error)
	// ListByUser returns the user's full merchant set. Resolution scans it
	// linearly; acceptable at per-user scale (hundreds of merchants).
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Merchant, error)
	// Update persists grown aliases and incremented counters.
	Update(ctx context.Context, merchant *domain.Merchant) error
}
