package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pharmacrm/internal/service"
)

func AdminListNotifications(notifications *service.NotificationService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/notifications"
		defer handlePanic(c, logger, route)

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				respondWithError(c, logger, http.StatusBadRequest, route, "invalid limit")
				return
			}
			limit = n
		}

		list, err := notifications.List(c.Request.Context(), parseBoolQuery(c, "unread"), limit)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
	}
}

func AdminMarkNotificationRead(notifications *service.NotificationService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/notifications/:id/read"
		defer handlePanic(c, logger, route)

		id, ok := parseIDParam(c, logger, route)
		if !ok {
			return
		}
		if err := notifications.MarkRead(c.Request.Context(), id); err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
	}
}

func AdminMarkAllNotificationsRead(notifications *service.NotificationService, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/api/notifications/read-all"
		defer handlePanic(c, logger, route)

		n, err := notifications.MarkAllRead(c.Request.Context())
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": n})
	}
}
