package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recivo/internal/config"
	"recivo/internal/handler"
	"recivo/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	corsCfg *config.CORSConfig,
	receiptH *handler.ReceiptHandler,
	aliasH *handler.AliasHandler,
	inboundH *handler.InboundHandler,
	botH *handler.BotHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()
	// Webhook providers probe with GET; answer 405, not 404.
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"success": false,
			"error":   gin.H{"code": "METHOD_NOT_ALLOWED", "message": "method not allowed"},
		})
	})

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsCfg.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	// Webhooks - authenticated by shared secret, not user identity
	webhooks := r.Group("/webhooks")
	webhooks.POST("/inbound-email", inboundH.Receive)
	webhooks.POST("/bot", botH.Receive)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())

	receipts := v1.Group("/receipts")
	receipts.POST("/upload", receiptH.Upload)
	receipts.GET("", receiptH.List)
	receipts.GET("/export", receiptH.Export)
	receipts.GET("/:id", receiptH.Get)
	receipts.GET("/:id/download", receiptH.Download)

	v1.GET("/forwarding-address", aliasH.ForwardingAddress)

	return r
}
