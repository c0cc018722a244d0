// Package errors defines the sentinel errors of the review module
package errors

import "errors"

var (
	// ErrShowNotFound indicates the reviewed show does not exist
	ErrShowNotFound = errors.New("show not found")

	// ErrReviewNotFound indicates no review has the requested id
	ErrReviewNotFound = errors.New("review not found")

	// ErrInvalidRating indicates a rating outside 0.5 to 5 or off the half-star grid
	ErrInvalidRating = errors.New("rating must be between 0.5 and 5 in steps of 0.5")
)
