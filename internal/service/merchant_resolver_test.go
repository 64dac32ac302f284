package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"recivo/internal/domain"
	"recivo/mocks"
)

func TestCanonicalMerchantName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Trader Joe's #412", "Trader Joe's"},
		{"TRADER JOE'S 0412", "TRADER JOE'S"},
		{"Shell Oil 57442 1234", "Shell Oil"},
		{"Corner Cafe", "Corner Cafe"},
		{"The Very Long Merchant Name Inc", "The Very Long"},
		{"  spaced   out  ", "spaced out"},
		{"12345", "12345"}, // all digits stays as-is
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanonicalMerchantName(c.in), "input %q", c.in)
	}
}

func TestResolve_ExactAliasMatch(t *testing.T) {
	userID := uuid.New()
	existing := domain.Merchant{
		ID:            uuid.New(),
		UserID:        userID,
		CanonicalName: "Trader Joe's",
		Aliases:       domain.StringList{"Trader Joe's #412"},
		ReceiptCount:  3,
		TotalSpend:    120,
	}

	merchantRepo := new(mocks.MockMerchantRepo)
	merchantRepo.On("ListByUser", mock.Anything, userID).Return([]domain.Merchant{existing}, nil)
	merchantRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Merchant")).Return(nil)

	r := NewMerchantResolver(merchantRepo)
	res, err := r.Resolve(context.Background(), userID, "trader joe's #412", 30, 0.9)

	require.NoError(t, err)
	assert.Equal(t, existing.ID, res.Merchant.ID)
	assert.Equal(t, domain.MerchantMatchAlias, res.MatchedBy)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, 4, res.Merchant.ReceiptCount)
	assert.Equal(t, 150.0, res.Merchant.TotalSpend)
	// An exact alias hit does not grow the alias set.
	assert.Len(t, res.Merchant.Aliases, 1)
	merchantRepo.AssertExpectations(t)
}

func TestResolve_FuzzyMatchAddsAlias(t *testing.T) {
	userID := uuid.New()
	existing := domain.Merchant{
		ID:            uuid.New(),
		UserID:        userID,
		CanonicalName: "Trader Joe's",
		Aliases:       domain.StringList{"Trader Joe's #412"},
	}

	merchantRepo := new(mocks.MockMerchantRepo)
	merchantRepo.On("ListByUser", mock.Anything, userID).Return([]domain.Merchant{existing}, nil)
	merchantRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Merchant")).Return(nil)

	r := NewMerchantResolver(merchantRepo)
	res, err := r.Resolve(context.Background(), userID, "Trader Joe's Store 99", 15, 0.9)

	require.NoError(t, err)
	assert.Equal(t, existing.ID, res.Merchant.ID)
	assert.Equal(t, domain.MerchantMatchFuzzy, res.MatchedBy)
	assert.Equal(t, 0.8, res.Confidence)
	assert.True(t, res.Merchant.Aliases.Contains("Trader Joe's Store 99"))
}

func TestResolve_FuzzyMatchesStoredAlias(t *testing.T) {
	userID := uuid.New()
	// The raw name contains a stored alias but not the canonical name.
	existing := domain.Merchant{
		ID:            uuid.New(),
		UserID:        userID,
		CanonicalName: "Blue Bottle",
		Aliases:       domain.StringList{"BB Coffee Kiosk Downtown"},
	}

	merchantRepo := new(mocks.MockMerchantRepo)
	merchantRepo.On("ListByUser", mock.Anything, userID).Return([]domain.Merchant{existing}, nil)
	merchantRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Merchant")).Return(nil)

	r := NewMerchantResolver(merchantRepo)
	res, err := r.Resolve(context.Background(), userID, "BB Coffee Kiosk 9", 4, 0.9)

	require.NoError(t, err)
	assert.Equal(t, existing.ID, res.Merchant.ID)
	assert.Equal(t, domain.MerchantMatchFuzzy, res.MatchedBy)
	assert.True(t, res.Merchant.Aliases.Contains("BB Coffee Kiosk 9"))
	merchantRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestResolve_CreatesNewMerchant(t *testing.T) {
	userID := uuid.New()

	merchantRepo := new(mocks.MockMerchantRepo)
	merchantRepo.On("ListByUser", mock.Anything, userID).Return([]domain.Merchant{}, nil)
	merchantRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Merchant")).Return(nil)

	r := NewMerchantResolver(merchantRepo)
	res, err := r.Resolve(context.Background(), userID, "Blue Bottle Coffee #7", 6.5, 0.72)

	require.NoError(t, err)
	assert.Equal(t, "Blue Bottle Coffee", res.Merchant.CanonicalName)
	assert.Equal(t, domain.StringList{"Blue Bottle Coffee #7"}, res.Merchant.Aliases)
	assert.Equal(t, 1, res.Merchant.ReceiptCount)
	assert.Equal(t, 6.5, res.Merchant.TotalSpend)
	assert.Equal(t, domain.MerchantMatchAI, res.MatchedBy)
	// A new merchant carries the extractor's confidence in the supplier field.
	assert.Equal(t, 0.72, res.Confidence)
	merchantRepo.AssertExpectations(t)
}

func TestResolve_IdempotentOnSameRawString(t *testing.T) {
	userID := uuid.New()
	var created *domain.Merchant

	merchantRepo := new(mocks.MockMerchantRepo)
	merchantRepo.On("ListByUser", mock.Anything, userID).Return([]domain.Merchant{}, nil).Once()
	merchantRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Merchant")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Merchant) }).
		Return(nil)

	r := NewMerchantResolver(merchantRepo)
	first, err := r.Resolve(context.Background(), userID, "Corner Cafe 12", 10, 0.9)
	require.NoError(t, err)

	// Second resolution of the same raw string hits the stored alias.
	merchantRepo.On("ListByUser", mock.Anything, userID).Return([]domain.Merchant{*created}, nil).Once()
	merchantRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Merchant")).Return(nil)

	second, err := r.Resolve(context.Background(), userID, "Corner Cafe 12", 10, 0.9)
	require.NoError(t, err)
	assert.Equal(t, first.Merchant.ID, second.Merchant.ID)
	assert.Equal(t, domain.MerchantMatchAlias, second.MatchedBy)
}

func TestResolve_EmptySupplierRejected(t *testing.T) {
	merchantRepo := new(mocks.MockMerchantRepo)
	r := NewMerchantResolver(merchantRepo)

	_, err := r.Resolve(context.Background(), uuid.New(), "   ", 1, 0.9)
	assert.Error(t, err)
	merchantRepo.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
}
