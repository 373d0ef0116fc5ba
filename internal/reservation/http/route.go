package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	// Slot grid is public so visitors can browse availability.
	g.GET("/fields/:id/slots", h.Slots)
	g.GET("/fields/:id/reservations", authMiddleware, h.ListByField)

	group := g.Group("/reservations")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", h.Create)
		group.PATCH("/:id", h.Update)
		group.PATCH("/:id/cancel", h.Cancel)
	}
}
