package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrForeignKeyViolation is returned when a parent entity is missing
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrAlreadyExists is returned when an entity with the same ID exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrLimitReached is returned when a create would exceed a count cap
	ErrLimitReached = errors.New("limit reached")
)
