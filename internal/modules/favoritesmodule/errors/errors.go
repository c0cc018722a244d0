// Package errors defines the sentinel errors of the favourites module
package errors

import "errors"

var (
	// ErrShowNotFound indicates the show to add does not exist
	ErrShowNotFound = errors.New("show not found")

	// ErrFolderNotFound indicates no folder with that id belongs to the account
	ErrFolderNotFound = errors.New("folder not found")

	// ErrDuplicateFolder indicates the account already has a folder with that name
	ErrDuplicateFolder = errors.New("folder already exists")

	// ErrFolderNameRequired indicates a blank folder name
	ErrFolderNameRequired = errors.New("folder name is required")

	// ErrInvalidColour indicates an unknown folder colour
	ErrInvalidColour = errors.New("invalid colour")
)
