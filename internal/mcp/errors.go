package mcp

import (
	"errors"
	"fmt"

	"github.com/ggmemo/ggmemo/internal/apperr"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
)

// APIError represents an MCP tool error.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

const unexpectedMessage = "An unexpected error occurred"

var recoveryHints = map[apperr.Code]string{
	apperr.CodeSessionLimitExceeded: "Delete an old session or memo first",
	apperr.CodeSessionTitleTooLong:  "Shorten the title",
	apperr.CodeNotFound:             "Call list_sessions or list_memos for valid ids",
	apperr.CodeUnauthorized:         "Send a valid bearer token",
}

// MapError maps domain errors to MCP errors. Only the user-facing message
// leaves the server; context and cause stay in the logs.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	if errors.Is(err, memo.ErrWatchUnsupported) {
		return &APIError{Code: string(apperr.CodeUnknown), Message: err.Error()}
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return &APIError{Code: string(apperr.CodeUnknown), Message: unexpectedMessage}
	}
	message := appErr.Message
	if appErr.Code == apperr.CodeUnknown {
		message = unexpectedMessage
	}
	return &APIError{
		Code:         string(appErr.Code),
		Message:      message,
		RecoveryHint: recoveryHints[appErr.Code],
	}
}
