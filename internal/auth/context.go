package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID = "userID"
	ctxRole   = "userRole"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	if v, ok := c.Get(ctxUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetRole returns the authenticated user's role or empty string.
func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}
	return ""
}

// IsAdmin is shorthand for GetRole(c) == RoleAdmin.
func IsAdmin(c *gin.Context) bool {
	return GetRole(c) == RoleAdmin
}
