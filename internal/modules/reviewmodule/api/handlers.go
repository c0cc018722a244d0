package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/api"
	"github.com/mantonx/streamhub/internal/middleware"
	reviewerrors "github.com/mantonx/streamhub/internal/modules/reviewmodule/errors"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
)

// Handler provides HTTP handlers for reviews
type Handler struct {
	service services.ReviewService
}

// NewHandler creates a new API handler
func NewHandler(service services.ReviewService) *Handler {
	return &Handler{service: service}
}

// SubmitReview handles POST /api/shows/:id/reviews
func (h *Handler) SubmitReview(c *gin.Context) {
	showID, ok := api.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var input types.ReviewInput
	if !api.BindJSON(c, &input) {
		return
	}

	result, err := h.service.SubmitReview(c.Request.Context(), middleware.CurrentAccount(c).ID, showID, input, c.ClientIP())
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// ListReviews handles GET /api/shows/:id/reviews
func (h *Handler) ListReviews(c *gin.Context) {
	showID, ok := api.ParseIDParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	reviews, err := h.service.ListReviews(ctx, showID)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	average, err := h.service.AverageRating(ctx, showID)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"show_id":        showID,
		"reviews":        reviews,
		"average_review": average,
		"count_review":   len(reviews),
	})
}

// SetVisibility handles PATCH /api/reviews/:reviewId
func (h *Handler) SetVisibility(c *gin.Context) {
	reviewID, ok := api.ParseIDParam(c, "reviewId")
	if !ok {
		return
	}
	var input types.VisibilityInput
	if !api.BindJSON(c, &input) {
		return
	}

	review, err := h.service.SetVisibility(c.Request.Context(), reviewID, *input.Status)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, review)
}

// mapError converts review sentinels into API errors
func mapError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var mapped *types.AppError
	switch {
	case errors.Is(err, reviewerrors.ErrShowNotFound):
		mapped = types.NewNotFoundError("show", "")
	case errors.Is(err, reviewerrors.ErrReviewNotFound):
		mapped = types.NewNotFoundError("review", "")
	case errors.Is(err, reviewerrors.ErrInvalidRating):
		mapped = types.NewValidationError("Invalid rating.").
			WithField("rating", "Rating must be between 0.5 and 5 in steps of 0.5.")
	default:
		return err
	}
	mapped.Cause = err
	return mapped
}
