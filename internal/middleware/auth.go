package middleware

import (
	"net/http"
	"strings"

	"task-tracking-client/internal/auth"
	"task-tracking-client/internal/models"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware validates JWT token in Authorization header
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		tokenString := ""
		if authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		// Fallback for WebSocket/browser where custom headers cannot be set: allow token in query param
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			c.Abort()
			return
		}

		// Validate token
		claims, err := auth.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		// Store user info in context for use in handlers
		c.Set("user_id", claims.UserID)
		c.Set("user_name", claims.Name)
		c.Set("user_role", string(claims.Role))
		c.Set("user_company", claims.Company)

		c.Next()
	}
}

// ActorFromContext rebuilds the authenticated actor stored by
// JWTAuthMiddleware. The bool is false when the middleware did not run.
func ActorFromContext(c *gin.Context) (auth.Actor, bool) {
	id := c.GetString("user_id")
	role := models.Role(c.GetString("user_role"))
	if id == "" || !role.Valid() {
		return auth.Actor{}, false
	}
	return auth.Actor{ID: id, Role: role}, true
}
