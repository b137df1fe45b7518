package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharmacrm/internal/service"
)

type WebhookRequest struct {
	Event string          `json:"event" binding:"required"`
	Data  json.RawMessage `json:"data"`
}

// ReceiveWebhook handles POST /api/integration/webhooks.
func ReceiveWebhook(webhooks *service.WebhookService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/integration/webhooks"
		defer handlePanic(c, logger, route)

		var req WebhookRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}

		result, err := webhooks.Dispatch(c.Request.Context(), req.Event, req.Data)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"received": true,
			"event":    req.Event,
			"result":   result,
		})
	}
}
