package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/middleware"
)

const moduleID = "system.favorites"

// RegisterRoutes registers the favourites and folder routes; all of them
// need a logged-in account
func RegisterRoutes(router gin.IRouter, handler *Handler) {
	authed := router.Group("/api", middleware.RequireAuth())
	{
		authed.GET("/favorites", handler.ListFavorites)
		authed.POST("/shows/:id/favorite", handler.AddFavorite)
		authed.DELETE("/shows/:id/favorite", handler.RemoveFavorite)

		authed.GET("/folders", handler.ListFolders)
		authed.POST("/folders", handler.CreateFolder)
		authed.GET("/folders/:folderId", handler.GetFolder)
		authed.PUT("/folders/:folderId", handler.RenameFolder)
		authed.DELETE("/folders/:folderId", handler.DeleteFolder)
		authed.POST("/folders/:folderId/shows/:showId", handler.AddShowToFolder)
		authed.DELETE("/folders/:folderId/shows/:showId", handler.RemoveShowFromFolder)
	}

	for _, r := range []struct{ path, method, desc string }{
		{"/api/favorites", http.MethodGet, "Favourite shows, newest first"},
		{"/api/shows/:id/favorite", http.MethodPost, "Add a show to favourites"},
		{"/api/shows/:id/favorite", http.MethodDelete, "Remove a show from favourites"},
		{"/api/folders", http.MethodGet, "List folders"},
		{"/api/folders", http.MethodPost, "Create a folder"},
		{"/api/folders/:folderId", http.MethodGet, "Folder with its shows"},
		{"/api/folders/:folderId", http.MethodPut, "Rename or recolour a folder"},
		{"/api/folders/:folderId", http.MethodDelete, "Delete a folder"},
		{"/api/folders/:folderId/shows/:showId", http.MethodPost, "Add a show to a folder"},
		{"/api/folders/:folderId/shows/:showId", http.MethodDelete, "Remove a show from a folder"},
	} {
		apiroutes.RegisterFor(moduleID, r.path, r.method, r.desc)
	}
}
