package noop

import (
	"context"
	"log"

	"recivo/internal/port"
)

type noopSender struct{}

// NewNoopSender creates a no-op EmailSender that logs instead of sending.
func NewNoopSender() port.EmailSender {
	return &noopSender{}
}

func (s *noopSender) SendReviewNotification(_ context.Context, toEmail, toName, receiptFileName string) error {
	log.Printf("[NOOP EMAIL] Review notification for %s (%s): receipt %q needs review", toName, toEmail, receiptFileName)
	return nil
}
