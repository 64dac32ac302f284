package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEmailSender is a mock implementation of port.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendReviewNotification(ctx context.Context, toEmail, toName, receiptFileName string) error {
	args := m.Called(ctx, toEmail, toName, receiptFileName)
	return args.Error(0)
}
