package types

import (
	"github.com/mantonx/streamhub/internal/database"
)

// FolderInput creates or renames a folder
type FolderInput struct {
	Name   string `json:"name" binding:"required,max=30"`
	Colour string `json:"colour" binding:"omitempty,oneof=YELLOW BLUE GREEN yellow blue green"`
}

// ReviewInput is the body of a review submission
type ReviewInput struct {
	Subject string  `json:"subject" binding:"max=100"`
	Review  string  `json:"review" binding:"max=500"`
	Rating  float64 `json:"rating" binding:"required,min=0.5,max=5"`
}

// ReviewResult reports whether a submission created or updated the review
type ReviewResult struct {
	Review  *database.ReviewRating `json:"review"`
	Created bool                   `json:"created"`
	Message string                 `json:"message"`
}

// VisibilityInput shows or hides a review
type VisibilityInput struct {
	Status *bool `json:"status" binding:"required"`
}

// StoredAsset describes an image written to the media root
type StoredAsset struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}
