// Package errors defines the sentinel errors of the catalog module
package errors

import "errors"

var (
	// ErrShowNotFound indicates no show has the requested id
	ErrShowNotFound = errors.New("show not found")

	// ErrSeasonNotFound indicates no season has the requested id
	ErrSeasonNotFound = errors.New("season not found")

	// ErrCategoryNotFound indicates no category has the requested slug or id
	ErrCategoryNotFound = errors.New("category not found")

	// ErrDuplicateCategory indicates another category has the same name or slug
	ErrDuplicateCategory = errors.New("category already exists")

	// ErrDuplicateSeason indicates the show already has a season with that number
	ErrDuplicateSeason = errors.New("season already exists")

	// ErrDuplicateEpisode indicates the season already has an episode with that number
	ErrDuplicateEpisode = errors.New("episode already exists")

	// ErrInvalidGenre indicates an unknown genre name
	ErrInvalidGenre = errors.New("invalid genre")

	// ErrEmptySlug indicates a category name without any letters or digits
	ErrEmptySlug = errors.New("name must contain letters or digits")
)
