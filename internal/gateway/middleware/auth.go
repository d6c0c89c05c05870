package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tavola-system/internal/utils"
)

const (
	ContextRestaurantID = "restaurant_id"
	ContextTableID      = "table_id"
	ContextRole         = "role"
)

// JWTAuth validates the bearer token and stows its claims on the context.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing or malformed authorization header",
				"error":   "UNAUTHORIZED",
			})
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
				"error":   "UNAUTHORIZED",
			})
			return
		}

		c.Set(ContextRestaurantID, claims.RestaurantID)
		c.Set(ContextTableID, claims.TableID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireStaff gates endpoints customers must not reach with a table token.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != utils.RoleStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Staff access required",
				"error":   "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}
