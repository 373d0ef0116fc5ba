package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	// === Public Routes ===
	g.GET("/fields/:id/images", h.ListByField)
	g.GET("/images/:id", h.ServeImage)
	g.GET("/images/:id/thumbnail", h.ServeThumbnail)

	// === Owner Routes ===
	owners := g.Group("", authMiddleware, auth.RequireRole(auth.RoleOwner, auth.RoleAdmin))
	{
		owners.POST("/fields/:id/images", h.Upload)
		owners.DELETE("/images/:id", h.Delete)
	}
}
