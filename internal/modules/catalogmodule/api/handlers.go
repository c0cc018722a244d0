package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/api"
	catalogerrors "github.com/mantonx/streamhub/internal/modules/catalogmodule/errors"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
)

// Handler provides HTTP handlers for catalog operations
type Handler struct {
	service services.CatalogService
}

// NewHandler creates a new API handler
func NewHandler(service services.CatalogService) *Handler {
	return &Handler{service: service}
}

// ListShows handles GET /api/shows
func (h *Handler) ListShows(c *gin.Context) {
	var filter types.ShowFilter
	if !api.BindQuery(c, &filter) {
		return
	}
	h.respondWithShows(c, filter)
}

// ShowsByCategory handles GET /api/categories/:slug/shows
func (h *Handler) ShowsByCategory(c *gin.Context) {
	var filter types.ShowFilter
	if !api.BindQuery(c, &filter) {
		return
	}

	category, err := h.service.GetCategory(c.Request.Context(), c.Param("slug"))
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	filter.CategorySlug = category.Slug
	h.respondWithShows(c, filter)
}

// Search handles GET /api/search?q=. An empty query matches nothing.
func (h *Handler) Search(c *gin.Context) {
	var filter types.ShowFilter
	if !api.BindQuery(c, &filter) {
		return
	}

	filter.Normalize()
	if strings.TrimSpace(filter.Query) == "" {
		c.JSON(http.StatusOK, &types.ShowList{Items: []types.ShowSummary{}, Limit: filter.Limit, Offset: filter.Offset})
		return
	}
	h.respondWithShows(c, filter)
}

func (h *Handler) respondWithShows(c *gin.Context, filter types.ShowFilter) {
	list, err := h.service.ListShows(c.Request.Context(), filter)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetShow handles GET /api/shows/:id
func (h *Handler) GetShow(c *gin.Context) {
	id, ok := api.ParseIDParam(c, "id")
	if !ok {
		return
	}

	show, err := h.service.GetShow(c.Request.Context(), id)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, show)
}

// GetEpisodes handles GET /api/episodes/:seasonId
func (h *Handler) GetEpisodes(c *gin.Context) {
	seasonID, ok := api.ParseIDParam(c, "seasonId")
	if !ok {
		return
	}

	episodes, err := h.service.EpisodesBySeason(c.Request.Context(), seasonID)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"season_id": seasonID, "episodes": episodes})
}

// ListCategories handles GET /api/categories
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateShow handles POST /api/shows
func (h *Handler) CreateShow(c *gin.Context) {
	var input types.ShowInput
	if !api.BindJSON(c, &input) {
		return
	}

	show, err := h.service.CreateShow(c.Request.Context(), input)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusCreated, show)
}

// UpdateShow handles PUT /api/shows/:id
func (h *Handler) UpdateShow(c *gin.Context) {
	id, ok := api.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var input types.ShowInput
	if !api.BindJSON(c, &input) {
		return
	}

	show, err := h.service.UpdateShow(c.Request.Context(), id, input)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, show)
}

// DeleteShow handles DELETE /api/shows/:id
func (h *Handler) DeleteShow(c *gin.Context) {
	id, ok := api.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteShow(c.Request.Context(), id); err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadPoster handles POST /api/shows/:id/poster
func (h *Handler) UploadPoster(c *gin.Context) {
	id, ok := api.ParseIDParam(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("poster")
	if err != nil {
		api.RespondWithError(c, types.NewValidationError("no file uploaded").
			WithField("poster", "This field is required."))
		return
	}
	file, err := header.Open()
	if err != nil {
		api.RespondWithInternalError(c, "failed to read upload", err)
		return
	}
	defer file.Close()

	show, err := h.service.UploadPoster(c.Request.Context(), id, header.Filename, file)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, show)
}

// AddSeason handles POST /api/shows/:id/seasons
func (h *Handler) AddSeason(c *gin.Context) {
	id, ok := api.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var input types.SeasonInput
	if !api.BindJSON(c, &input) {
		return
	}

	season, err := h.service.AddSeason(c.Request.Context(), id, input)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusCreated, season)
}

// AddEpisode handles POST /api/seasons/:seasonId/episodes
func (h *Handler) AddEpisode(c *gin.Context) {
	seasonID, ok := api.ParseIDParam(c, "seasonId")
	if !ok {
		return
	}
	var input types.EpisodeInput
	if !api.BindJSON(c, &input) {
		return
	}

	episode, err := h.service.AddEpisode(c.Request.Context(), seasonID, input)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusCreated, episode)
}

// CreateCategory handles POST /api/categories
func (h *Handler) CreateCategory(c *gin.Context) {
	var input types.CategoryInput
	if !api.BindJSON(c, &input) {
		return
	}

	category, err := h.service.CreateCategory(c.Request.Context(), input)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/categories/:slug
func (h *Handler) UpdateCategory(c *gin.Context) {
	var input types.CategoryInput
	if !api.BindJSON(c, &input) {
		return
	}

	category, err := h.service.UpdateCategory(c.Request.Context(), c.Param("slug"), input)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/categories/:slug
func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.service.DeleteCategory(c.Request.Context(), c.Param("slug")); err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// mapError converts catalog sentinels into API errors
func mapError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var mapped *types.AppError
	switch {
	case errors.Is(err, catalogerrors.ErrShowNotFound):
		mapped = types.NewNotFoundError("show", "")
	case errors.Is(err, catalogerrors.ErrSeasonNotFound):
		mapped = types.NewNotFoundError("season", "")
	case errors.Is(err, catalogerrors.ErrCategoryNotFound):
		mapped = types.NewNotFoundError("category", "")
	case errors.Is(err, catalogerrors.ErrDuplicateCategory):
		mapped = types.NewConflictError("A category with this name already exists.").
			WithField("name", "A category with this name already exists.")
	case errors.Is(err, catalogerrors.ErrEmptySlug):
		mapped = types.NewValidationError("Name must contain letters or digits.").
			WithField("name", "Name must contain letters or digits.")
	case errors.Is(err, catalogerrors.ErrDuplicateSeason):
		mapped = types.NewConflictError("This show already has a season with that number.").
			WithField("number", "Season number already used.")
	case errors.Is(err, catalogerrors.ErrDuplicateEpisode):
		mapped = types.NewConflictError("This season already has an episode with that number.").
			WithField("number", "Episode number already used.")
	case errors.Is(err, catalogerrors.ErrInvalidGenre):
		mapped = types.NewValidationError("Unknown genre.").WithField("genre", "Select a valid choice.")
	default:
		return err
	}
	mapped.Cause = err
	return mapped
}
