package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recivo/internal/config"
	"recivo/internal/service"
)

type stubInboundService struct {
	result *service.InboundResult
	err    error
}

func (s *stubInboundService) ProcessEmail(_ context.Context, _ []byte, _ string) (*service.InboundResult, error) {
	return s.result, s.err
}

func inboundTestRouter(svc service.InboundService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewInboundHandler(svc, &config.InboundConfig{WebhookSecret: "s3cret"})
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.POST("/webhooks/inbound-email", h.Receive)
	return r
}

func TestInboundWebhook_RejectsBadSecret(t *testing.T) {
	r := inboundTestRouter(&stubInboundService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/inbound-email?secret=wrong", strings.NewReader("x"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestInboundWebhook_RejectsMissingSecret(t *testing.T) {
	r := inboundTestRouter(&stubInboundService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/inbound-email", strings.NewReader("x"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInboundWebhook_MethodNotAllowed(t *testing.T) {
	r := inboundTestRouter(&stubInboundService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/inbound-email?secret=s3cret", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestInboundWebhook_SuccessReturns200(t *testing.T) {
	r := inboundTestRouter(&stubInboundService{result: &service.InboundResult{
		OK:              true,
		CreatedReceipts: 2,
		ProcessedUsers:  []string{"u1"},
		SkippedUsers:    []service.InboundSkip{},
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/inbound-email?secret=s3cret", strings.NewReader("body"))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"createdReceipts":2`)
	assert.Contains(t, w.Body.String(), `"ok":true`)
}

func TestInboundWebhook_SkippedReturns202(t *testing.T) {
	r := inboundTestRouter(&stubInboundService{result: &service.InboundResult{
		OK:             false,
		ProcessedUsers: []string{},
		SkippedUsers:   []service.InboundSkip{{Reason: service.SkipNoMatchingAlias}},
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/inbound-email?secret=s3cret", strings.NewReader("body"))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "no_matching_alias")
}

func TestInboundWebhook_StorageFailureReturns500(t *testing.T) {
	r := inboundTestRouter(&stubInboundService{err: errors.New("s3 unreachable")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/inbound-email?secret=s3cret", strings.NewReader("body"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
