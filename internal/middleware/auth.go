package middleware

import (
	"net/http"
	"strings"

	"github.com/estatex/wallet-ledger/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userIDKey   = "user_id"
	userRoleKey = "user_role"
)

// AuthMiddleware creates a middleware function for JWT authentication
func AuthMiddleware(jwtService *auth.JWTService, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authorization header is required",
				"error":   "missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid authorization header format",
				"error":   "authorization header must start with 'Bearer '",
			})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Token is required",
				"error":   "empty token",
			})
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			log.Debug("rejected bearer token", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(userRoleKey, claims.Role)

		c.Next()
	}
}

// RequireRole lets the request through only when the caller carries role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if current, _ := GetUserRole(c); current != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Insufficient permissions",
				"error":   "role " + role + " required",
			})
			return
		}
		c.Next()
	}
}

// GetUserID extracts user ID from the Gin context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDKey)
	return userID, userID != ""
}

// GetUserRole extracts the caller's role from the Gin context
func GetUserRole(c *gin.Context) (string, bool) {
	role := c.GetString(userRoleKey)
	return role, role != ""
}

// IsAdmin reports whether the authenticated caller has the admin role
func IsAdmin(c *gin.Context) bool {
	role, _ := GetUserRole(c)
	return role == auth.RoleAdmin
}
