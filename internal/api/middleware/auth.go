package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/certledger/certledger/internal/auth"
)

// ContextKeyAdminUser is the gin context key holding the authenticated
// admin username.
const ContextKeyAdminUser = "admin_user"

// AdminAuth middleware validates the admin session token
func AdminAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Admin token required",
			})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header must be a bearer token",
			})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Invalid or expired admin token",
			})
			c.Abort()
			return
		}

		c.Set(ContextKeyAdminUser, claims.Username)
		c.Next()
	}
}
