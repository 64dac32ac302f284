package handler

import (
	"crypto/subtle"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"recivo/internal/config"
	"recivo/internal/service"
)

// InboundHandler receives inbound email webhook deliveries.
type InboundHandler struct {
	inboundService service.InboundService
	cfg            *config.InboundConfig
}

// NewInboundHandler creates a new InboundHandler.
func NewInboundHandler(inboundService service.InboundService, cfg *config.InboundConfig) *InboundHandler {
	return &InboundHandler{inboundService: inboundService, cfg: cfg}
}

// Receive handles POST /webhooks/inbound-email
// @Summary Inbound email webhook
// @Description Entry point for the email provider; authenticated by a shared secret query parameter
// @Tags webhooks
// @Accept */*
// @Produce json
// @Param secret query string true "Shared webhook secret"
// @Success 200 {object} service.InboundResult "Receipts created"
// @Success 202 {object} service.InboundResult "Accepted but nothing ingested"
// @Failure 401 {object} APIResponse "Bad secret"
// @Failure 500 {object} APIResponse "Storage failure"
// @Router /webhooks/inbound-email [post]
func (h *InboundHandler) Receive(c *gin.Context) {
	if !h.secretOK(c.Query("secret")) {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook secret")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_REQUEST", "could not read request body")
		return
	}

	result, err := h.inboundService.ProcessEmail(c.Request.Context(), body, c.GetHeader("Content-Type"))
	if err != nil {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] inbound webhook: %v", requestID, err)
		RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "inbound processing failed")
		return
	}

	// The provider treats 2xx as delivered; a skipped email is acknowledged
	// with 202 so it is not retried.
	status := http.StatusOK
	if result.CreatedReceipts == 0 {
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}

func (h *InboundHandler) secretOK(got string) bool {
	want := h.cfg.WebhookSecret
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
