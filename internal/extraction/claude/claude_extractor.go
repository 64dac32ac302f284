package claude

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"recivo/internal/config"
	"recivo/internal/domain"
	"recivo/internal/extraction"
	"recivo/internal/port"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Extractor implements port.Extractor using the Anthropic Messages API.
// It handles vision input for image/PDF receipts and text-only input for
// email-body-only ingestions.
type Extractor struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewExtractor creates a Claude-based generative extractor.
func NewExtractor(cfg *config.GenerativeExtractorConfig) *Extractor {
	return newExtractor(cfg, apiURL)
}

// NewExtractorWithEndpoint creates an extractor pointing at a custom API endpoint (for testing).
func NewExtractorWithEndpoint(cfg *config.GenerativeExtractorConfig, endpoint string) *Extractor {
	return newExtractor(cfg, endpoint)
}

func newExtractor(cfg *config.GenerativeExtractorConfig, endpoint string) *Extractor {
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Extractor{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) (*domain.ExtractionResult, error) {
	contentBlocks, err := buildContentBlocks(input)
	if err != nil {
		return nil, fmt.Errorf("building content blocks: %w", err)
	}

	reqBody := map[string]interface{}{
		"model":      e.model,
		"max_tokens": 1024,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": contentBlocks,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := extraction.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, extraction.NewRateLimitError("claude", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, e.model)
}

func buildContentBlocks(input port.ExtractInput) ([]map[string]interface{}, error) {
	prompt := extraction.BuildReceiptPrompt()

	if len(input.FileBytes) == 0 {
		if input.Text == "" {
			return nil, fmt.Errorf("no document bytes and no text content to extract from")
		}
		return []map[string]interface{}{
			{"type": "text", "text": prompt + "\n\nEmail content:\n" + input.Text},
		}, nil
	}

	encoded := base64.StdEncoding.EncodeToString(input.FileBytes)
	var blocks []map[string]interface{}

	switch input.ContentType {
	case "application/pdf":
		blocks = append(blocks, map[string]interface{}{
			"type": "document",
			"source": map[string]interface{}{
				"type":       "base64",
				"media_type": "application/pdf",
				"data":       encoded,
			},
		})
	case "image/jpeg", "image/png":
		blocks = append(blocks, map[string]interface{}{
			"type": "image",
			"source": map[string]interface{}{
				"type":       "base64",
				"media_type": input.ContentType,
				"data":       encoded,
			},
		})
	case "text/plain":
		return []map[string]interface{}{
			{"type": "text", "text": prompt + "\n\nEmail content:\n" + string(input.FileBytes)},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported content type for generative extraction: %s", input.ContentType)
	}

	blocks = append(blocks, map[string]interface{}{
		"type": "text",
		"text": prompt,
	})

	return blocks, nil
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// modelOutput is the JSON contract the prompt asks the model to follow.
type modelOutput struct {
	SupplierName *string            `json:"supplier_name"`
	TotalAmount  *string            `json:"total_amount"`
	Currency     *string            `json:"currency"`
	Date         *string            `json:"date"`
	Confidence   map[string]float64 `json:"confidence"`
}

func parseResponse(body []byte, model string) (*domain.ExtractionResult, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("empty response from API")
	}
	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("output truncated (stop_reason: max_tokens)")
	}

	// The model may wrap its JSON in prose; recover tolerantly.
	var out modelOutput
	if !extraction.UnmarshalLoose(resp.Content[0].Text, &out) {
		return nil, fmt.Errorf("model output is not recoverable JSON (raw: %s)", truncate(resp.Content[0].Text, 500))
	}

	res := &domain.ExtractionResult{
		Source:    domain.ExtractionSourceGenerative,
		ModelUsed: model,
	}
	if out.TotalAmount != nil && *out.TotalAmount != "" {
		res.TotalAmount = &domain.ExtractedField[float64]{
			RawText:    *out.TotalAmount,
			Confidence: out.confidenceFor("total_amount"),
		}
	}
	if out.Currency != nil && *out.Currency != "" {
		res.Currency = &domain.ExtractedField[string]{
			Value:      *out.Currency,
			Confidence: out.confidenceFor("currency"),
		}
	}
	if out.Date != nil && *out.Date != "" {
		res.Date = &domain.ExtractedField[string]{
			RawText:    *out.Date,
			Confidence: out.confidenceFor("date"),
		}
	}
	if out.SupplierName != nil && *out.SupplierName != "" {
		res.SupplierName = &domain.ExtractedField[string]{
			Value:      *out.SupplierName,
			Confidence: out.confidenceFor("supplier_name"),
		}
	}
	res.OverallConfidence = extraction.AverageConfidence(res)
	return res, nil
}

// confidenceFor returns the model's self-reported confidence for a field,
// defaulting to 0.5 when it omitted the entry.
func (o *modelOutput) confidenceFor(field string) float64 {
	if c, ok := o.Confidence[field]; ok {
		return c
	}
	return 0.5
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
