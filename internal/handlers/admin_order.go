package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/service"
)

type UpdateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	DeliveryStatus string `json:"deliveryStatus"`
}

/*
GET /admin/api/orders
- page, limit
- userId, status
*/
func AdminListOrders(orders *service.OrderService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, logger, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}
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

		data, pagination := paginate(list, page, limit)
		c.JSON(http.StatusOK, gin.H{
			"data":       data,
			"pagination": pagination,
		})
	}
}

func AdminGetOrder(orders *service.OrderService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders/:id"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		order, err := orders.Get(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// AdminUpdateOrderStatus moves an order along its lifecycle. Cancelling puts
// the ordered quantities back in stock.
func AdminUpdateOrderStatus(orders *service.OrderService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /admin/api/orders/:id/status"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		var req UpdateOrderStatusRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}

		status, err := models.ParseOrderStatus(req.Status)
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}
		var delivery *models.DeliveryStatus
		if req.DeliveryStatus != "" {
			ds, err := models.ParseDeliveryStatus(req.DeliveryStatus)
			if err != nil {
				respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
				return
			}
			delivery = &ds
		}

		order, err := orders.UpdateStatus(c.Request.Context(), id, status, delivery)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func AdminVerifyPrescription(orders *service.OrderService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/orders/:id/verify-prescription"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		order, err := orders.VerifyPrescription(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
