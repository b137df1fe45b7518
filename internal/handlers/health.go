package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type SubscriptionLister interface {
	Active() []string
}

// Health reports database reachability and the live change subscriptions.
// db is nil when running on the in-memory store.
func Health(db Pinger, subs SubscriptionLister, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /health"
		defer handlePanic(c, logger, route)

		body := gin.H{"status": "ok", "database": "memory"}
		if subs != nil {
			body["subscriptions"] = subs.Active()
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				logger.Warnw("health check ping failed", "error", err)
				body["status"] = "degraded"
				body["database"] = "down"
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
			body["database"] = "up"
		}
		c.JSON(http.StatusOK, body)
	}
}
