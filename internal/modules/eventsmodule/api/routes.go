package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/middleware"
)

const moduleID = "system.events"

// RegisterRoutes registers the staff-only event routes
func RegisterRoutes(router gin.IRouter, handler *Handler) {
	group := router.Group("/api/events", middleware.RequireStaff())
	{
		group.GET("", handler.GetEvents)
		group.GET("/stats", handler.GetStats)
		group.GET("/ws", handler.Stream)
	}

	apiroutes.RegisterFor(moduleID, "/api/events", http.MethodGet, "Stored events, newest first (staff)")
	apiroutes.RegisterFor(moduleID, "/api/events/stats", http.MethodGet, "Event bus counters (staff)")
	apiroutes.RegisterFor(moduleID, "/api/events/ws", http.MethodGet, "Live event feed over websocket (staff)")
}
