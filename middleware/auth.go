package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smartkasa/kasapay/config"
	"github.com/smartkasa/kasapay/models"
	"github.com/smartkasa/kasapay/utils"
)

// AdminAuthMiddleware guards catalog management routes with a bearer token
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.LogError("Missing Authorization header")
			utils.Unauthorized(c, "Authorization required")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		adminID, err := utils.ValidateAdminToken(tokenString)
		if err != nil {
			utils.LogError("Invalid admin token: %v", err)
			utils.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		var admin models.Admin
		if err := config.DB.First(&admin, adminID).Error; err != nil {
			utils.LogError("Admin %d not found for valid token", adminID)
			utils.Unauthorized(c, "Admin account not found")
			c.Abort()
			return
		}
		if !admin.IsActive {
			utils.Forbidden(c, "Admin account is disabled")
			c.Abort()
			return
		}

		c.Set("admin", admin)
		c.Next()
	}
}
