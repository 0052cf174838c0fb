package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CtxUserID = "user_id"
	CtxPlan   = "subscription_plan"
)

// UserID extracts the authenticated principal's id from the Gin context.
// Set by RequireUser.
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(CtxUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// Plan extracts the principal's resolved plan tier.
func Plan(c *gin.Context) string {
	return c.GetString(CtxPlan)
}
