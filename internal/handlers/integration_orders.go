package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
	"pharmacrm/internal/service"
)

// CreateIntegrationOrder handles POST /api/integration/orders. Every line is
// checked before any stock moves; a missing product is 404 and a short line 400.
func CreateIntegrationOrder(orders *service.OrderService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/integration/orders"
		defer handlePanic(c, logger, route)

		var req service.CreateOrderRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}
		req.Source = service.SourceIntegration

		order, err := orders.CreateOrder(c.Request.Context(), req)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

// orderFilterFromQuery reads userId and status, shared by the integration and
// dashboard order lists.
func orderFilterFromQuery(c *gin.Context) (repository.OrderFilter, error) {
	f := repository.OrderFilter{UserID: strings.TrimSpace(c.Query("userId"))}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := models.ParseOrderStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	return f, nil
}

// ListIntegrationOrders handles GET /api/integration/orders.
func ListIntegrationOrders(orders *service.OrderService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/integration/orders"
		defer handlePanic(c, logger, route)

		filter, err := orderFilterFromQuery(c)
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		list, err := orders.List(c.Request.Context(), filter)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"data":  list,
			"count": len(list),
		})
	}
}
