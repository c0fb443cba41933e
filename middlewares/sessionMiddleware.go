package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/gem_ledger/models"
)

// SessionMiddleware resolves the `token` header into the cached session and
// puts its actor on the request context. Requests without a token pass
// through anonymously.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		session, err := models.LoadSession(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(session.WithContext(c.Request.Context()))
		c.Next()
	}
}
