package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"recivo/internal/config"
	"recivo/internal/service"
)

// BotHandler receives chat-bot gateway webhook deliveries.
type BotHandler struct {
	botService service.BotService
	cfg        *config.InboundConfig
}

// NewBotHandler creates a new BotHandler.
func NewBotHandler(botService service.BotService, cfg *config.InboundConfig) *BotHandler {
	return &BotHandler{botService: botService, cfg: cfg}
}

// Receive handles POST /webhooks/bot
// @Summary Chat-bot webhook
// @Description Ingests a receipt relayed by the bot gateway for a linked chat
// @Tags webhooks
// @Accept json
// @Produce json
// @Param secret query string true "Shared webhook secret"
// @Success 201 {object} APIResponse{data=domain.Receipt}
// @Failure 401 {object} APIResponse "Bad secret"
// @Failure 404 {object} APIResponse "Chat not linked"
// @Failure 429 {object} APIResponse "Quota exceeded"
// @Router /webhooks/bot [post]
func (h *BotHandler) Receive(c *gin.Context) {
	if !h.secretOK(c.Query("secret")) {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid webhook secret")
		return
	}

	var update service.BotUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_REQUEST", "invalid bot update payload")
		return
	}

	receipt, err := h.botService.ProcessUpdate(c.Request.Context(), &update)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, receipt)
}

func (h *BotHandler) secretOK(got string) bool {
	want := h.cfg.BotSecret
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
