package claude

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recivo/internal/config"
	"recivo/internal/domain"
	"recivo/internal/extraction"
	"recivo/internal/port"
)

func testExtractor(t *testing.T, handler http.HandlerFunc) *Extractor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewExtractorWithEndpoint(&config.GenerativeExtractorConfig{
		APIKey:      "test-key",
		Model:       "claude-sonnet-4-20250514",
		TimeoutSecs: 5,
	}, srv.URL)
}

func messagesResponse(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"content":     []map[string]string{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
	})
	return string(b)
}

func TestExtract_ImageRequestAndParse(t *testing.T) {
	var captured map[string]interface{}
	e := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))
		io.WriteString(w, messagesResponse(`Here is the extraction:
{"supplier_name":"Corner Cafe","total_amount":"$42.50","currency":"USD","date":"2024-03-15","confidence":{"supplier_name":0.9,"total_amount":0.95}}`))
	})

	res, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("fake-jpeg"),
		ContentType: "image/jpeg",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionSourceGenerative, res.Source)
	assert.Equal(t, "claude-sonnet-4-20250514", res.ModelUsed)
	require.NotNil(t, res.TotalAmount)
	assert.Equal(t, "$42.50", res.TotalAmount.RawText)
	assert.Equal(t, 0.95, res.TotalAmount.Confidence)
	require.NotNil(t, res.SupplierName)
	assert.Equal(t, "Corner Cafe", res.SupplierName.Value)
	// The model omitted confidence entries for currency and date.
	assert.Equal(t, 0.5, res.Currency.Confidence)
	assert.Equal(t, 0.5, res.Date.Confidence)

	messages := captured["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)
	assert.Equal(t, "image", content[0].(map[string]interface{})["type"])
	assert.Equal(t, "text", content[1].(map[string]interface{})["type"])
}

func TestExtract_TextOnlyInput(t *testing.T) {
	var captured map[string]interface{}
	e := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))
		io.WriteString(w, messagesResponse(`{"supplier_name":"Acme","total_amount":"12.00","currency":"EUR","date":"2024-01-02","confidence":{}}`))
	})

	res, err := e.Extract(context.Background(), port.ExtractInput{
		Text: "Your order from Acme: total EUR 12.00 on Jan 2 2024",
	})

	require.NoError(t, err)
	assert.Equal(t, "Acme", res.SupplierName.Value)

	messages := captured["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 1)
	block := content[0].(map[string]interface{})
	assert.Equal(t, "text", block["type"])
	assert.Contains(t, block["text"], "Acme")
}

func TestExtract_NoInputAtAll(t *testing.T) {
	e := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made")
	})

	_, err := e.Extract(context.Background(), port.ExtractInput{})
	assert.Error(t, err)
}

func TestExtract_UnsupportedContentType(t *testing.T) {
	e := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made")
	})

	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("x"),
		ContentType: "application/zip",
	})
	assert.Error(t, err)
}

func TestExtract_RateLimited(t *testing.T) {
	e := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"type":"rate_limit_error"}}`)
	})

	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("x"),
		ContentType: "image/png",
	})

	require.Error(t, err)
	var rle *extraction.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "claude", rle.Provider)
	assert.Equal(t, float64(30), rle.RetryAfter.Seconds())
}

func TestExtract_TruncatedOutputRejected(t *testing.T) {
	e := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := json.Marshal(map[string]interface{}{
			"content":     []map[string]string{{"type": "text", "text": `{"supplier_name":`}},
			"stop_reason": "max_tokens",
		})
		w.Write(b)
	})

	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("x"),
		ContentType: "image/jpeg",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestExtract_UnrecoverableModelOutput(t *testing.T) {
	e := testExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, messagesResponse("I could not read this receipt."))
	})

	_, err := e.Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("x"),
		ContentType: "image/jpeg",
	})

	assert.Error(t, err)
}
