package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/api"
	"github.com/mantonx/streamhub/internal/middleware"
	favoriteerrors "github.com/mantonx/streamhub/internal/modules/favoritesmodule/errors"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
)

// Handler provides HTTP handlers for favourites and folders. Every route
// runs behind RequireAuth.
type Handler struct {
	service services.FavoritesService
}

// NewHandler creates a new API handler
func NewHandler(service services.FavoritesService) *Handler {
	return &Handler{service: service}
}

// ListFavorites handles GET /api/favorites
func (h *Handler) ListFavorites(c *gin.Context) {
	shows, err := h.service.ListFavorites(c.Request.Context(), middleware.CurrentAccount(c).ID)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"shows": shows, "count": len(shows)})
}

// AddFavorite handles POST /api/shows/:id/favorite
func (h *Handler) AddFavorite(c *gin.Context) {
	showID, ok := api.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.AddFavorite(c.Request.Context(), middleware.CurrentAccount(c).ID, showID); err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"show_id": showID, "favorite": true})
}

// RemoveFavorite handles DELETE /api/shows/:id/favorite
func (h *Handler) RemoveFavorite(c *gin.Context) {
	showID, ok := api.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.RemoveFavorite(c.Request.Context(), middleware.CurrentAccount(c).ID, showID); err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"show_id": showID, "favorite": false})
}

// ListFolders handles GET /api/folders
func (h *Handler) ListFolders(c *gin.Context) {
	folders, err := h.service.ListFolders(c.Request.Context(), middleware.CurrentAccount(c).ID)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

// CreateFolder handles POST /api/folders
func (h *Handler) CreateFolder(c *gin.Context) {
	var input types.FolderInput
	if !api.BindJSON(c, &input) {
		return
	}

	folder, err := h.service.CreateFolder(c.Request.Context(), middleware.CurrentAccount(c).ID, input)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusCreated, folder)
}

// GetFolder handles GET /api/folders/:folderId
func (h *Handler) GetFolder(c *gin.Context) {
	folderID, ok := api.ParseIDParam(c, "folderId")
	if !ok {
		return
	}

	folder, err := h.service.GetFolder(c.Request.Context(), middleware.CurrentAccount(c).ID, folderID)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, folder)
}

// RenameFolder handles PUT /api/folders/:folderId
func (h *Handler) RenameFolder(c *gin.Context) {
	folderID, ok := api.ParseIDParam(c, "folderId")
	if !ok {
		return
	}
	var input types.FolderInput
	if !api.BindJSON(c, &input) {
		return
	}

	folder, err := h.service.RenameFolder(c.Request.Context(), middleware.CurrentAccount(c).ID, folderID, input)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, folder)
}

// DeleteFolder handles DELETE /api/folders/:folderId
func (h *Handler) DeleteFolder(c *gin.Context) {
	folderID, ok := api.ParseIDParam(c, "folderId")
	if !ok {
		return
	}

	if err := h.service.DeleteFolder(c.Request.Context(), middleware.CurrentAccount(c).ID, folderID); err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// AddShowToFolder handles POST /api/folders/:folderId/shows/:showId
func (h *Handler) AddShowToFolder(c *gin.Context) {
	folderID, showID, ok := folderAndShow(c)
	if !ok {
		return
	}

	if err := h.service.AddShowToFolder(c.Request.Context(), middleware.CurrentAccount(c).ID, folderID, showID); err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"folder_id": folderID, "show_id": showID})
}

// RemoveShowFromFolder handles DELETE /api/folders/:folderId/shows/:showId
func (h *Handler) RemoveShowFromFolder(c *gin.Context) {
	folderID, showID, ok := folderAndShow(c)
	if !ok {
		return
	}

	if err := h.service.RemoveShowFromFolder(c.Request.Context(), middleware.CurrentAccount(c).ID, folderID, showID); err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func folderAndShow(c *gin.Context) (folderID, showID uint, ok bool) {
	if folderID, ok = api.ParseIDParam(c, "folderId"); !ok {
		return 0, 0, false
	}
	if showID, ok = api.ParseIDParam(c, "showId"); !ok {
		return 0, 0, false
	}
	return folderID, showID, true
}

// mapError converts favourites sentinels into API errors
func mapError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var mapped *types.AppError
	switch {
	case errors.Is(err, favoriteerrors.ErrShowNotFound):
		mapped = types.NewNotFoundError("show", "")
	case errors.Is(err, favoriteerrors.ErrFolderNotFound):
		mapped = types.NewNotFoundError("folder", "")
	case errors.Is(err, favoriteerrors.ErrDuplicateFolder):
		mapped = types.NewConflictError("You already have a folder with this name.").
			WithField("name", "You already have a folder with this name.")
	case errors.Is(err, favoriteerrors.ErrFolderNameRequired):
		mapped = types.NewValidationError("Folder name is required.").WithField("name", "This field is required.")
	case errors.Is(err, favoriteerrors.ErrInvalidColour):
		mapped = types.NewValidationError("Unknown colour.").WithField("colour", "Select a valid choice.")
	default:
		return err
	}
	mapped.Cause = err
	return mapped
}
