package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"pharmacrm/internal/models"
)

const staffContextKey = "staff"

// StaffClaims is the authenticated dashboard user stored on the gin context.
type StaffClaims struct {
	ID    string
	Email string
	Role  models.Role
}

// AuthGuard validates a staff bearer token and, when roles are given, requires
// the token's role to be one of them. The role claim is parsed into the closed
// Role set here, so handlers never see an unknown role.
func AuthGuard(secret string, logger *zap.SugaredLogger, allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		parts := strings.Split(raw, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			logger.Infow("token validation failed", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		rawRole, _ := claims["role"].(string)
		role, err := models.ParseRole(rawRole)
		if err != nil {
			logger.Infow("token carries unknown role", "role", rawRole)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !roleAllowed(role, allowedRoles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		sub, _ := claims["sub"].(string)
		email, _ := claims["email"].(string)
		c.Set(staffContextKey, StaffClaims{ID: sub, Email: email, Role: role})
		c.Next()
	}
}

func roleAllowed(role models.Role, allowed []models.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// RequireRole narrows a group already behind AuthGuard to the given roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentStaff(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !roleAllowed(claims.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// CurrentStaff returns the claims stored by AuthGuard.
func CurrentStaff(c *gin.Context) (StaffClaims, bool) {
	v, ok := c.Get(staffContextKey)
	if !ok {
		return StaffClaims{}, false
	}
	claims, ok := v.(StaffClaims)
	return claims, ok
}
