package handler

import (
	"github.com/gin-gonic/gin"

	"recivo/internal/service"
)

// AliasHandler exposes the user's forwarding email address.
type AliasHandler struct {
	aliasService service.AliasService
}

// NewAliasHandler creates a new AliasHandler.
func NewAliasHandler(aliasService service.AliasService) *AliasHandler {
	return &AliasHandler{aliasService: aliasService}
}

// ForwardingAddress handles GET /api/v1/forwarding-address
// @Summary Get the user's receipt forwarding email address
// @Description Returns the address receipts can be emailed to; assigns one on first call
// @Tags alias
// @Produce json
// @Success 200 {object} APIResponse
// @Router /forwarding-address [get]
func (h *AliasHandler) ForwardingAddress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	address, err := h.aliasService.EnsureForwardingAddress(c.Request.Context(), userID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"address": address})
}
