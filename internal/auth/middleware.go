package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devin-clone/core-backend/internal/users"
)

// RequireUser validates the Bearer access token, loads the user, and places
// the principal id and plan tier in the request context. Everything behind
// it trusts these values without re-validating credentials.
func RequireUser(secret string, userRepo *users.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token"})
			c.Abort()
			return
		}

		userID, err := ParseToken(secret, token, TokenTypeAccess)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			c.Abort()
			return
		}

		u, err := userRepo.ByID(c.Request.Context(), userID)
		if err != nil || !u.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(CtxUserID, u.ID)
		c.Set(CtxPlan, u.Plan)
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
