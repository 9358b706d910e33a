package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cheongsim/delivery-app/config"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/gin-gonic/gin"
)

// BearerToken mengambil token dari header Authorization atau query ?token= (websocket)
func BearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

// AdminAuthMiddleware hanya aktif jika ADMIN_PASSPHRASE di-set
func AdminAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.AdminAuthEnabled() {
			c.Next()
			return
		}

		tokenString := BearerToken(c)
		if tokenString == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("admin token missing"))
			c.Abort()
			return
		}

		claims, err := utils.ParseAdminToken([]byte(cfg.JWTSecret), tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, err)
			c.Abort()
			return
		}

		c.Set("role", claims.Role)
		c.Set("token", tokenString)
		if claims.ExpiresAt != nil {
			c.Set("token_expiry", claims.ExpiresAt.Time)
		}
		c.Next()
	}
}
