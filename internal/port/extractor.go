package port

import (
	"context"

	"recivo/internal/domain"
)

// ExtractInput carries the data needed for receipt field extraction.
// FileBytes/ContentType describe the primary attachment; Text carries the
// readable email body for text-only extraction when no attachment exists.
type ExtractInput struct {
	FileBytes   []byte
	ContentType string
	Text        string
}

// Extractor abstracts a receipt extraction engine. Implementations return
// per-field confidences averaged into OverallConfidence in [0,1].
type Extractor interface {
	Extract(ctx context.Context, input ExtractInput) (*domain.ExtractionResult, error)
}
