package textract

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"recivo/internal/config"
	"recivo/internal/domain"
	"recivo/internal/extraction"
	"recivo/internal/port"
)

// expenseAnalyzer is the slice of the Textract API the extractor uses.
type expenseAnalyzer interface {
	AnalyzeExpense(ctx context.Context, input *textract.AnalyzeExpenseInput, optFns ...func(*textract.Options)) (*textract.AnalyzeExpenseOutput, error)
}

// Extractor implements port.Extractor using Textract's AnalyzeExpense API,
// which returns typed summary fields with per-field confidences.
type Extractor struct {
	client expenseAnalyzer
}

// NewExtractor creates a Textract-backed structured extractor.
func NewExtractor(cfg *config.StructuredExtractorConfig) (*Extractor, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config for textract: %w", err)
	}
	return &Extractor{client: textract.NewFromConfig(awsCfg)}, nil
}

// newWithAPI wires a custom API implementation (for testing).
func newWithAPI(api expenseAnalyzer) *Extractor {
	return &Extractor{client: api}
}

// analyzableTypes are the content types the synchronous AnalyzeExpense API
// accepts as inline document bytes.
var analyzableTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) (*domain.ExtractionResult, error) {
	if len(input.FileBytes) == 0 {
		return nil, fmt.Errorf("structured extraction requires document bytes")
	}
	if !analyzableTypes[input.ContentType] {
		return nil, fmt.Errorf("unsupported content type for structured extraction: %s", input.ContentType)
	}

	out, err := e.client.AnalyzeExpense(ctx, &textract.AnalyzeExpenseInput{
		Document: &types.Document{Bytes: input.FileBytes},
	})
	if err != nil {
		return nil, fmt.Errorf("textract AnalyzeExpense: %w", err)
	}
	if len(out.ExpenseDocuments) == 0 {
		return nil, fmt.Errorf("textract returned no expense documents")
	}

	res := mapSummaryFields(out.ExpenseDocuments[0].SummaryFields)
	res.OverallConfidence = extraction.AverageConfidence(res)
	return res, nil
}

// mapSummaryFields translates Textract summary fields into an extraction
// result. Textract confidences are 0-100.
func mapSummaryFields(fields []types.ExpenseField) *domain.ExtractionResult {
	res := &domain.ExtractionResult{
		Source:    domain.ExtractionSourceStructured,
		ModelUsed: "textract-analyze-expense",
	}
	for _, f := range fields {
		if f.Type == nil || f.Type.Text == nil || f.ValueDetection == nil || f.ValueDetection.Text == nil {
			continue
		}
		text := *f.ValueDetection.Text
		conf := float64(confidenceOf(f)) / 100
		switch *f.Type.Text {
		case "TOTAL", "AMOUNT_PAID":
			if res.TotalAmount == nil {
				res.TotalAmount = &domain.ExtractedField[float64]{Confidence: conf, RawText: text}
			}
			if res.Currency == nil && f.Currency != nil && f.Currency.Code != nil {
				res.Currency = &domain.ExtractedField[string]{Value: *f.Currency.Code, Confidence: conf}
			}
		case "INVOICE_RECEIPT_DATE":
			if res.Date == nil {
				res.Date = &domain.ExtractedField[string]{Confidence: conf, RawText: text}
			}
		case "VENDOR_NAME", "NAME":
			if res.SupplierName == nil {
				res.SupplierName = &domain.ExtractedField[string]{Value: text, Confidence: conf}
			}
		}
	}
	return res
}

func confidenceOf(f types.ExpenseField) float32 {
	if f.ValueDetection != nil && f.ValueDetection.Confidence != nil {
		return *f.ValueDetection.Confidence
	}
	return 0
}
