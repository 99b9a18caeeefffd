package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not
	// match. The message is user-facing and must not enable account
	// enumeration.
	ErrInvalidCredentials = errors.New("Invalid credentials")

	ErrAllFieldsRequired = errors.New("All fields are required")
	ErrEmailExists       = errors.New("Email already exists")
	ErrUsernameExists    = errors.New("Username already exists")

	ErrInvalidRating = errors.New("Rating must be between 1 and 5")
	ErrImageRequired = errors.New("Image is required")

	ErrBookNotFound = errors.New("Book not found")
	// ErrNotOwner is returned when a user tries to delete someone else's post.
	ErrNotOwner = errors.New("Unauthorized")
)
