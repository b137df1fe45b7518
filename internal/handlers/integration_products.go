package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/service"
)

/*
GET /api/integration/products
- category: exact category match
- inStockOnly: true hides products with no stock
*/
func ListIntegrationProducts(inventory *service.InventoryService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/integration/products"
		defer handlePanic(c, logger, route)

		products, err := inventory.ListPublic(c.Request.Context(), c.Query("category"), parseBoolQuery(c, "inStockOnly"))
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data":  products,
			"count": len(products),
		})
	}
}

type StockUpdateRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required,gte=0,lte=1000000000"`
	Operation string `json:"operation"`
}

// UpdateIntegrationStock handles PUT /api/integration/products.
func UpdateIntegrationStock(inventory *service.InventoryService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/integration/products"
		defer handlePanic(c, logger, route)

		var req StockUpdateRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}
		op, err := models.ParseStockOperation(req.Operation)
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		result, err := inventory.AdjustStock(c.Request.Context(), req.ProductID, *req.Quantity, op)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
