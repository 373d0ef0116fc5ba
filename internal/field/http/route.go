package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *FieldHandler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/fields")

	// === Public Routes ===
	group.GET("", h.List)    // List fields
	group.GET("/:id", h.Get) // Get field details

	// === Owner Routes ===
	owners := group.Group("", authMiddleware, auth.RequireRole(auth.RoleOwner, auth.RoleAdmin))
	{
		owners.POST("", h.Create)       // Create field
		owners.PATCH("/:id", h.Update)  // Update field
		owners.DELETE("/:id", h.Delete) // Delete field
	}
}
