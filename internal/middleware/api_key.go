package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderAPIKey           = "X-API-Key"
	HeaderWebhookSignature = "X-Webhook-Signature"
)

// secretMatches compares in constant time. An empty expected secret never
// matches, so an unconfigured key locks the route instead of opening it.
func secretMatches(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// APIKey guards the storefront integration routes.
func APIKey(key string, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !secretMatches(key, strings.TrimSpace(c.GetHeader(HeaderAPIKey))) {
			logger.Infow("integration request rejected", "path", c.Request.URL.Path, "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}

// WebhookSignature guards the inbound webhook route. The storefront sends the
// shared secret itself in the signature header.
func WebhookSignature(secret string, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !secretMatches(secret, strings.TrimSpace(c.GetHeader(HeaderWebhookSignature))) {
			logger.Infow("webhook rejected", "path", c.Request.URL.Path, "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
			return
		}
		c.Next()
	}
}
