package port

import "context"

// EmailSender defines the contract for outbound notification email.
// Templating and delivery belong to the provider implementation.
type EmailSender interface {
	SendReviewNotification(ctx context.Context, toEmail, toName, receiptFileName string) error
}
