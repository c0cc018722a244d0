package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/middleware"
)

const moduleID = "system.catalog"

// RegisterRoutes registers the public browsing routes and the staff-only
// curation routes
func RegisterRoutes(router gin.IRouter, handler *Handler) {
	public := router.Group("/api")
	{
		public.GET("/shows", handler.ListShows)
		public.GET("/shows/:id", handler.GetShow)
		public.GET("/categories", handler.ListCategories)
		public.GET("/categories/:slug/shows", handler.ShowsByCategory)
		public.GET("/search", handler.Search)
		public.GET("/episodes/:seasonId", handler.GetEpisodes)
	}

	staff := router.Group("/api", middleware.RequireStaff())
	{
		staff.POST("/shows", handler.CreateShow)
		staff.PUT("/shows/:id", handler.UpdateShow)
		staff.DELETE("/shows/:id", handler.DeleteShow)
		staff.POST("/shows/:id/poster", handler.UploadPoster)
		staff.POST("/shows/:id/seasons", handler.AddSeason)
		staff.POST("/seasons/:seasonId/episodes", handler.AddEpisode)
		staff.POST("/categories", handler.CreateCategory)
		staff.PUT("/categories/:slug", handler.UpdateCategory)
		staff.DELETE("/categories/:slug", handler.DeleteCategory)
	}

	for _, r := range []struct{ path, method, desc string }{
		{"/api/shows", http.MethodGet, "List shows with filtering, sorting and paging"},
		{"/api/shows/:id", http.MethodGet, "Show with seasons, episodes and reviews"},
		{"/api/categories", http.MethodGet, "List categories"},
		{"/api/categories/:slug/shows", http.MethodGet, "List the shows of a category"},
		{"/api/search", http.MethodGet, "Search show titles and descriptions"},
		{"/api/episodes/:seasonId", http.MethodGet, "Episodes of a season"},
		{"/api/shows", http.MethodPost, "Create a show (staff)"},
		{"/api/shows/:id", http.MethodPut, "Update a show (staff)"},
		{"/api/shows/:id", http.MethodDelete, "Delete a show (staff)"},
		{"/api/shows/:id/poster", http.MethodPost, "Upload a poster (staff)"},
		{"/api/shows/:id/seasons", http.MethodPost, "Add a season (staff)"},
		{"/api/seasons/:seasonId/episodes", http.MethodPost, "Add an episode (staff)"},
		{"/api/categories", http.MethodPost, "Create a category (staff)"},
		{"/api/categories/:slug", http.MethodPut, "Rename a category (staff)"},
		{"/api/categories/:slug", http.MethodDelete, "Delete a category (staff)"},
	} {
		apiroutes.RegisterFor(moduleID, r.path, r.method, r.desc)
	}
}
