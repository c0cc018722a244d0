package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/middleware"
)

const moduleID = "system.reviews"

// RegisterRoutes registers the review routes
func RegisterRoutes(router gin.IRouter, handler *Handler) {
	router.GET("/api/shows/:id/reviews", handler.ListReviews)
	router.POST("/api/shows/:id/reviews", middleware.RequireAuth(), handler.SubmitReview)
	router.PATCH("/api/reviews/:reviewId", middleware.RequireStaff(), handler.SetVisibility)

	apiroutes.RegisterFor(moduleID, "/api/shows/:id/reviews", http.MethodGet, "Visible reviews of a show")
	apiroutes.RegisterFor(moduleID, "/api/shows/:id/reviews", http.MethodPost, "Submit or update your review of a show")
	apiroutes.RegisterFor(moduleID, "/api/reviews/:reviewId", http.MethodPatch, "Show or hide a review (staff)")
}
