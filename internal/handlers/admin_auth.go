package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"pharmacrm/internal/middleware"
	"pharmacrm/internal/service"
)

type StaffLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// StaffLogin exchanges dashboard credentials for an HS256 access token.
func StaffLogin(staff *service.StaffService, jwtSecret string, accessTTL time.Duration, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /admin/login"
		defer handlePanic(c, logger, route)

		var req StaffLoginRequest
		if !bindJSON(c, logger, route, &req) {
			return
		}
		if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
			respondWithError(c, logger, http.StatusBadRequest, route, "email and password are required")
			return
		}

		member, err := staff.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondServiceError(c, logger, route, err)
			return
		}

		expiresAt := time.Now().Add(accessTTL)
		claims := jwt.MapClaims{
			"sub":   member.ID.Hex(),
			"role":  string(member.Role),
			"email": member.Email,
			"exp":   expiresAt.Unix(),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
		if err != nil {
			respondWithError(c, logger, http.StatusInternalServerError, route, "token generation failed")
			return
		}

		logger.Infow("staff logged in", "staff_id", member.ID.Hex(), "role", member.Role)
		c.JSON(http.StatusOK, gin.H{
			"token":     signed,
			"expiresAt": expiresAt.UTC(),
			"role":      member.Role,
		})
	}
}

func AdminMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.CurrentStaff(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":    claims.ID,
			"email": claims.Email,
			"role":  claims.Role,
		})
	}
}
