package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
	"pharmacrm/internal/repository"
	"pharmacrm/internal/service"
)

/* =====================================================
   REQUEST / RESPONSE TYPES
===================================================== */

// productResponse adds the earliest batch expiry to the stored product.
type productResponse struct {
	models.Product
	NearestExpiry *time.Time `json:"nearestExpiry,omitempty"`
}

func newProductResponse(p models.Product) productResponse {
	return productResponse{Product: p, NearestExpiry: p.NearestExpiry()}
}

type CreateProductRequest struct {
	Name                 string         `json:"name" binding:"required"`
	Description          string         `json:"description"`
	Category             []string       `json:"category"`
	Brand                string         `json:"brand"`
	Price                float64        `json:"price" binding:"gte=0"`
	Discount             float64        `json:"discount" binding:"gte=0,lte=100"`
	Stock                int            `json:"stock" binding:"gte=0,lte=1000000000"`
	RequiresPrescription bool           `json:"requiresPrescription"`
	Images               []string       `json:"images"`
	Batches              []models.Batch `json:"batches"`
	IsActive             *bool          `json:"isActive"`
}

type AdminStockRequest struct {
	Quantity  *int   `json:"quantity" binding:"required,gte=0,lte=1000000000"`
	Operation string `json:"operation"`
}

/* =====================================================
   LIST
===================================================== */

/*
GET /admin/api/products
- page, limit
- category, search
- inStockOnly, includeInactive
*/
func AdminListProducts(inventory *service.InventoryService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/products"
		defer handlePanic(c, logger, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		filter := repository.ProductFilter{
			Category:        strings.TrimSpace(c.Query("category")),
			Search:          strings.TrimSpace(c.Query("search")),
			InStockOnly:     parseBoolQuery(c, "inStockOnly"),
			IncludeInactive: parseBoolQuery(c, "includeInactive"),
		}
		products, err := inventory.List(c.Request.Context(), filter)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}

		out := make([]productResponse, 0, len(products))
		for _, p := range products {
			out = append(out, newProductResponse(p))
		}
		data, pagination := paginate(out, page, limit)
		c.JSON(http.StatusOK, gin.H{
			"data":       data,
			"pagination": pagination,
		})
	}
}

func AdminGetProduct(inventory *service.InventoryService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/products/:id"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		product, err := inventory.Get(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, newProductResponse(*product))
	}
}

/* =====================================================
   CREATE / UPDATE / DELETE
===================================================== */

func AdminCreateProduct(inventory *service.InventoryService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/products"
		defer handlePanic(c, logger, route)

		var req CreateProductRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}
		product := &models.Product{
			Name:                 strings.TrimSpace(req.Name),
			Description:          req.Description,
			Category:             models.NewStringList(req.Category),
			Brand:                req.Brand,
			Price:                req.Price,
			Discount:             req.Discount,
			Stock:                req.Stock,
			RequiresPrescription: req.RequiresPrescription,
			Images:               req.Images,
			Batches:              req.Batches,
			IsActive:             active,
		}

		created, err := inventory.CreateProduct(c.Request.Context(), product)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusCreated, newProductResponse(*created))
	}
}

// AdminUpdateProduct applies a partial update; absent fields keep their value.
func AdminUpdateProduct(inventory *service.InventoryService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /admin/api/products/:id"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		var patch service.ProductPatch
		if !bindJSON(c, logger, route, &patch) {
			return
		}

		updated, err := inventory.UpdateProduct(c.Request.Context(), id, patch)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, newProductResponse(*updated))
	}
}

func AdminUpdateStock(inventory *service.InventoryService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /admin/api/products/:id/stock"
		defer handlePanic(c, logger, route)

		var req AdminStockRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}
		op, err := models.ParseStockOperation(req.Operation)
		if err != nil {
			respondWithError(c, logger, http.StatusBadRequest, route, err.Error())
			return
		}

		result, err := inventory.AdjustStock(c.Request.Context(), c.Param("id"), *req.Quantity, op)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func AdminDeleteProduct(inventory *service.InventoryService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/api/products/:id"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		if err := inventory.DeleteProduct(c.Request.Context(), id); err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}
