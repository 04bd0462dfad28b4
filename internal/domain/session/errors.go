package session

import "github.com/ggmemo/ggmemo/internal/apperr"

var (
	// ErrSessionNotFound indicates the session doesn't exist or belongs to
	// another owner.
	ErrSessionNotFound = apperr.Session(apperr.CodeNotFound, "Session not found")
	// ErrUnauthorized indicates an owner-scoped call without an owner.
	ErrUnauthorized = apperr.Session(apperr.CodeUnauthorized, "You must be signed in to manage battle sessions")
	// ErrInvalidInput indicates a request missing required identifiers.
	ErrInvalidInput = apperr.Session(apperr.CodeInvalidInput, "invalid session input")
)
