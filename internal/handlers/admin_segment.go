package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharmacrm/internal/service"
)

// AdminSegmentReport handles GET /admin/api/segments. Segments are computed on
// every request from orders and customers.
func AdminSegmentReport(segments *service.SegmentService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/segments"
		defer handlePanic(c, logger, route)

		report, err := segments.Report(c.Request.Context(), time.Now().UTC())
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func AdminSegmentCustomers(segments *service.SegmentService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/segments/:segment"
		defer handlePanic(c, logger, route)

		profiles, err := segments.Customers(c.Request.Context(), c.Param("segment"), time.Now().UTC())
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"segment": c.Param("segment"),
			"data":    profiles,
			"count":   len(profiles),
		})
	}
}
