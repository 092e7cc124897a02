package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateLivestream is returned when inserting a livestream with an existing id
	ErrDuplicateLivestream = errors.New("livestream with this id already exists")
)
