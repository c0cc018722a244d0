package types

import (
	"github.com/mantonx/streamhub/internal/database"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ShowFilter selects and orders shows for listing and search
type ShowFilter struct {
	CategorySlug string `form:"category" json:"category,omitempty"`
	Genre        string `form:"genre" json:"genre,omitempty" binding:"omitempty,genre"`
	Query        string `form:"q" json:"q,omitempty" binding:"max=200"`
	Sort         string `form:"sort" json:"sort,omitempty" binding:"omitempty,oneof=popularity -popularity year -year title -title"`
	Limit        int    `form:"limit" json:"limit" binding:"omitempty,min=1,max=100"`
	Offset       int    `form:"offset" json:"offset" binding:"omitempty,min=0"`
}

// Normalize fills in paging and ordering defaults
func (f *ShowFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Sort == "" {
		f.Sort = "popularity"
	}
}

// RatingSummary holds the derived review figures of a show
type RatingSummary struct {
	ShowID  uint    `json:"show_id"`
	Average float64 `json:"average_review"`
	Count   int64   `json:"count_review"`
}

// ShowSummary is a show with its derived rating figures
type ShowSummary struct {
	database.Show
	AverageReview float64 `json:"average_review"`
	CountReview   int64   `json:"count_review"`
}

// ShowDetail is a show with seasons, episodes and visible reviews
type ShowDetail struct {
	ShowSummary
	Reviews []database.ReviewRating `json:"reviews"`
}

// ShowList is one page of shows
type ShowList struct {
	Items  []ShowSummary `json:"items"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ShowInput creates or replaces the editable fields of a show
type ShowInput struct {
	Title       string  `json:"title" binding:"required,max=500"`
	Description string  `json:"description" binding:"max=500"`
	Year        int     `json:"year" binding:"required,min=1888,max=2100"`
	Genre       string  `json:"genre" binding:"required,genre"`
	Popularity  float64 `json:"popularity" binding:"min=0,max=9.99"`
	VideoPath   string  `json:"video_path" binding:"max=255"`
	CategoryID  *uint   `json:"category_id"`
}

// CategoryInput creates or renames a category
type CategoryInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=2000"`
}

// SeasonInput adds a season to a show
type SeasonInput struct {
	Number int    `json:"number" binding:"required,min=1"`
	Title  string `json:"title" binding:"max=200"`
}

// EpisodeInput adds an episode to a season
type EpisodeInput struct {
	Number      int    `json:"number" binding:"required,min=1"`
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	VideoPath   string `json:"video_path" binding:"max=255"`
	Duration    int    `json:"duration" binding:"min=0"`
}
