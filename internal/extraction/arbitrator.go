package extraction

import (
	"context"
	"log"

	"recivo/internal/domain"
	"recivo/internal/port"
)

// lowConfidenceThreshold is the overall confidence below which the next
// strategy in the chain is still attempted.
const lowConfidenceThreshold = 0.5

// strategy is one step of the ordered extraction chain.
type strategy struct {
	name      string
	source    domain.ExtractionSource
	extractor port.Extractor
}

// Arbitrator runs extraction engines in fixed priority order until the
// confidence threshold is met, keeping the highest-confidence result. On an
// exact confidence tie the earlier (structured) result wins: a later result
// is adopted only when strictly better. Engine failures are contained here
// and never propagate past the arbitration boundary; only a fully empty
// chain yields ErrNoExtraction.
type Arbitrator struct {
	strategies []strategy
}

// NewArbitrator builds the chain from the configured engines. Either may be
// nil; its step is simply absent.
func NewArbitrator(structured, generative port.Extractor) *Arbitrator {
	a := &Arbitrator{}
	if structured != nil {
		a.strategies = append(a.strategies, strategy{
			name:      "structured",
			source:    domain.ExtractionSourceStructured,
			extractor: structured,
		})
	}
	if generative != nil {
		a.strategies = append(a.strategies, strategy{
			name:      "generative",
			source:    domain.ExtractionSourceGenerative,
			extractor: generative,
		})
	}
	return a
}

// Extract runs the strategy chain over the input.
func (a *Arbitrator) Extract(ctx context.Context, input port.ExtractInput) (*domain.ExtractionResult, error) {
	var best *domain.ExtractionResult

	for _, st := range a.strategies {
		if best != nil && best.OverallConfidence >= lowConfidenceThreshold {
			break
		}
		res, err := st.extractor.Extract(ctx, input)
		if err != nil {
			log.Printf("extraction.Arbitrator: %s engine failed: %v", st.name, err)
			continue
		}
		if res == nil {
			continue
		}
		norm := normalizeResult(res, st.source)
		if best == nil || norm.OverallConfidence > best.OverallConfidence {
			best = norm
		}
	}

	if best == nil {
		return nil, ErrNoExtraction
	}
	return best, nil
}
