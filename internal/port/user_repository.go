package port

import (
	"context"

	"github.com/google/uuid"

	"recivo/internal/domain"
)

// UserRepository reads user identity, forwarding aliases and quota state.
// Account creation and authentication live outside this service.
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetByForwardingAlias(ctx context.Context, alias string) (*domain.User, error)
	GetByBotChatID(ctx context.Context, chatID int64) (*domain.User, error)
	AliasExists(ctx context.Context, alias string) (bool, error)
	SetForwardingAlias(ctx context.Context, userID uuid.UUID, alias string) error
	// CheckAndIncrementQuota atomically verifies the user is under their
	// plan's receipt cap and increments the monthly counter. Returns
	// domain.ErrQuotaExceeded when the cap is reached.
	CheckAndIncrementQuota(ctx context.Context, userID uuid.UUID, planLimits map[domain.UserPlan]int) error
}
