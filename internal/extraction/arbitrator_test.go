package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recivo/internal/domain"
	"recivo/internal/port"
)

// stubExtractor returns a fixed result or error and records invocations.
type stubExtractor struct {
	result *domain.ExtractionResult
	err    error
	calls  int
}

func (s *stubExtractor) Extract(_ context.Context, _ port.ExtractInput) (*domain.ExtractionResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	// Return a copy; the arbitrator normalizes in place.
	res := *s.result
	return &res, nil
}

func syntheticResult(confidence float64) *domain.ExtractionResult {
	return &domain.ExtractionResult{
		SupplierName:      &domain.ExtractedField[string]{Value: "Some Store", Confidence: confidence},
		OverallConfidence: confidence,
	}
}

func TestArbitrator_AdoptsHigherConfidenceGenerative(t *testing.T) {
	structured := &stubExtractor{result: syntheticResult(0.4)}
	generative := &stubExtractor{result: syntheticResult(0.7)}
	a := NewArbitrator(structured, generative)

	res, err := a.Extract(context.Background(), port.ExtractInput{})

	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionSourceGenerative, res.Source)
	assert.Equal(t, 0.7, res.OverallConfidence)
	assert.Equal(t, 1, structured.calls)
	assert.Equal(t, 1, generative.calls)
}

func TestArbitrator_SkipsGenerativeAboveThreshold(t *testing.T) {
	structured := &stubExtractor{result: syntheticResult(0.9)}
	generative := &stubExtractor{result: syntheticResult(0.95)}
	a := NewArbitrator(structured, generative)

	res, err := a.Extract(context.Background(), port.ExtractInput{})

	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionSourceStructured, res.Source)
	assert.Equal(t, 0.9, res.OverallConfidence)
	assert.Equal(t, 0, generative.calls)
}

func TestArbitrator_TieKeepsStructured(t *testing.T) {
	structured := &stubExtractor{result: syntheticResult(0.4)}
	generative := &stubExtractor{result: syntheticResult(0.4)}
	a := NewArbitrator(structured, generative)

	res, err := a.Extract(context.Background(), port.ExtractInput{})

	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionSourceStructured, res.Source)
	assert.Equal(t, 1, generative.calls)
}

func TestArbitrator_GenerativeUnconditionalWhenStructuredFails(t *testing.T) {
	structured := &stubExtractor{err: errors.New("service unavailable")}
	generative := &stubExtractor{result: syntheticResult(0.2)}
	a := NewArbitrator(structured, generative)

	res, err := a.Extract(context.Background(), port.ExtractInput{})

	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionSourceGenerative, res.Source)
	assert.Equal(t, 0.2, res.OverallConfidence)
}

func TestArbitrator_NoStructuredConfigured(t *testing.T) {
	generative := &stubExtractor{result: syntheticResult(0.3)}
	a := NewArbitrator(nil, generative)

	res, err := a.Extract(context.Background(), port.ExtractInput{})

	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionSourceGenerative, res.Source)
}

func TestArbitrator_BothFail(t *testing.T) {
	structured := &stubExtractor{err: errors.New("boom")}
	generative := &stubExtractor{err: errors.New("also boom")}
	a := NewArbitrator(structured, generative)

	res, err := a.Extract(context.Background(), port.ExtractInput{})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoExtraction)
}

func TestArbitrator_NormalizesFields(t *testing.T) {
	structured := &stubExtractor{result: &domain.ExtractionResult{
		TotalAmount:       &domain.ExtractedField[float64]{RawText: "$1,234.56", Confidence: 0.9},
		Date:              &domain.ExtractedField[string]{RawText: "03/15/2024", Confidence: 0.8},
		SupplierName:      &domain.ExtractedField[string]{Value: " Corner Cafe ", Confidence: 0.85},
		OverallConfidence: 0.85,
	}}
	a := NewArbitrator(structured, nil)

	res, err := a.Extract(context.Background(), port.ExtractInput{})

	require.NoError(t, err)
	assert.Equal(t, 1234.56, res.TotalAmount.Value)
	assert.Equal(t, "2024-03-15", res.Date.Value)
	assert.Equal(t, "Corner Cafe", res.SupplierName.Value)
	// A total without a currency gets the USD default at half confidence.
	require.NotNil(t, res.Currency)
	assert.Equal(t, "USD", res.Currency.Value)
	assert.Equal(t, 0.5, res.Currency.Confidence)
}
