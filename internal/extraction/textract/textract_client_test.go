package textract

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recivo/internal/domain"
	"recivo/internal/port"
)

type stubAnalyzer struct {
	out   *textract.AnalyzeExpenseOutput
	err   error
	calls int
}

func (s *stubAnalyzer) AnalyzeExpense(_ context.Context, _ *textract.AnalyzeExpenseInput, _ ...func(*textract.Options)) (*textract.AnalyzeExpenseOutput, error) {
	s.calls++
	return s.out, s.err
}

func summaryField(fieldType, text string, confidence float32) types.ExpenseField {
	return types.ExpenseField{
		Type:           &types.ExpenseType{Text: aws.String(fieldType)},
		ValueDetection: &types.ExpenseDetection{Text: aws.String(text), Confidence: aws.Float32(confidence)},
	}
}

func TestExtract_MapsSummaryFields(t *testing.T) {
	total := summaryField("TOTAL", "42.50", 97)
	total.Currency = &types.ExpenseCurrency{Code: aws.String("USD")}

	stub := &stubAnalyzer{out: &textract.AnalyzeExpenseOutput{
		ExpenseDocuments: []types.ExpenseDocument{{
			SummaryFields: []types.ExpenseField{
				total,
				summaryField("INVOICE_RECEIPT_DATE", "03/15/2024", 88),
				summaryField("VENDOR_NAME", "Corner Cafe", 92),
			},
		}},
	}}

	e := newWithAPI(stub)
	res, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("fake-jpeg"),
		ContentType: "image/jpeg",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionSourceStructured, res.Source)
	require.NotNil(t, res.TotalAmount)
	assert.Equal(t, "42.50", res.TotalAmount.RawText)
	assert.InDelta(t, 0.97, res.TotalAmount.Confidence, 0.001)
	require.NotNil(t, res.Currency)
	assert.Equal(t, "USD", res.Currency.Value)
	require.NotNil(t, res.Date)
	assert.Equal(t, "03/15/2024", res.Date.RawText)
	require.NotNil(t, res.SupplierName)
	assert.Equal(t, "Corner Cafe", res.SupplierName.Value)
	assert.Greater(t, res.OverallConfidence, 0.8)
}

func TestExtract_FirstFieldOfEachKindWins(t *testing.T) {
	stub := &stubAnalyzer{out: &textract.AnalyzeExpenseOutput{
		ExpenseDocuments: []types.ExpenseDocument{{
			SummaryFields: []types.ExpenseField{
				summaryField("TOTAL", "42.50", 97),
				summaryField("AMOUNT_PAID", "40.00", 60),
				summaryField("VENDOR_NAME", "Corner Cafe", 92),
				summaryField("NAME", "C. Cafe LLC", 50),
			},
		}},
	}}

	e := newWithAPI(stub)
	res, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("x"),
		ContentType: "image/png",
	})

	require.NoError(t, err)
	assert.Equal(t, "42.50", res.TotalAmount.RawText)
	assert.Equal(t, "Corner Cafe", res.SupplierName.Value)
}

func TestExtract_RejectsUnsupportedContentType(t *testing.T) {
	stub := &stubAnalyzer{}
	e := newWithAPI(stub)

	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("x"),
		ContentType: "text/plain",
	})

	assert.Error(t, err)
	assert.Zero(t, stub.calls)
}

func TestExtract_RejectsEmptyBytes(t *testing.T) {
	stub := &stubAnalyzer{}
	e := newWithAPI(stub)

	_, err := e.Extract(context.Background(), port.ExtractInput{ContentType: "image/jpeg"})

	assert.Error(t, err)
	assert.Zero(t, stub.calls)
}

func TestExtract_NoExpenseDocuments(t *testing.T) {
	stub := &stubAnalyzer{out: &textract.AnalyzeExpenseOutput{}}
	e := newWithAPI(stub)

	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("x"),
		ContentType: "application/pdf",
	})

	assert.Error(t, err)
}

func TestExtract_APIError(t *testing.T) {
	stub := &stubAnalyzer{err: errors.New("throttled")}
	e := newWithAPI(stub)

	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("x"),
		ContentType: "image/jpeg",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "AnalyzeExpense")
}
