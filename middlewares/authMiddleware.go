package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/gem_ledger/models"
	"github.com/mmdatafocus/gem_ledger/utils"
)

// AuthMiddleware accepts `Authorization: Bearer <jwt>`. The token's session
// id must still be live, so signing out revokes the JWT as well.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		const bearer = "Bearer "
		if auth == "" || !strings.HasPrefix(auth, bearer) {
			c.Next()
			return
		}
		// session header already resolved
		if _, ok := utils.GetUserIdFromContext(c.Request.Context()); ok {
			c.Next()
			return
		}

		validate, err := utils.JwtValidate(auth[len(bearer):])
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		customClaim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok || customClaim.SessionId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		session, err := models.LoadSession(c.Request.Context(), customClaim.SessionId)
		if err != nil || session.ProfileId != customClaim.ID {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(session.WithContext(c.Request.Context()))
		c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := utils.GetUserIdFromContext(c.Request.Context()); !ok || id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects anonymous and viewer requests. The model layer checks
// again on every mutation.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id, ok := utils.GetUserIdFromContext(ctx); !ok || id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if role, _ := utils.GetUserRoleFromContext(ctx); models.UserRole(role) != models.UserRoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": utils.ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}
