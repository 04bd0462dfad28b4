package memo

import "github.com/ggmemo/ggmemo/internal/apperr"

var (
	// ErrMemoNotFound indicates the memo doesn't exist.
	ErrMemoNotFound = apperr.Memo(apperr.CodeNotFound, "memo not found")
	// ErrInvalidInput indicates a request missing required identifiers.
	ErrInvalidInput = apperr.Memo(apperr.CodeInvalidInput, "invalid memo input")
)
