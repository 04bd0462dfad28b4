package transport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ggmemo/ggmemo/internal/apperr"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/gin-gonic/gin"
)

// ErrorInfo is the error body returned to clients.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error ErrorInfo `json:"error"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, dataResponse{Data: data})
}

func respondError(c *gin.Context, status int, code apperr.Code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: ErrorInfo{Code: string(code), Message: message}})
}

// fail maps err onto an HTTP status and writes the user-facing part of it.
// Code, context and cause are logged.
func fail(c *gin.Context, logger *slog.Logger, err error) {
	if errors.Is(err, memo.ErrWatchUnsupported) {
		respondError(c, http.StatusNotImplemented, apperr.CodeUnknown, err.Error())
		return
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, apperr.CodeUnknown, "An unexpected error occurred")
		return
	}

	status := statusFor(appErr.Code)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError || appErr.Severity == apperr.SeverityCritical {
		level = slog.LevelError
	}
	logger.Log(c.Request.Context(), level, "request failed",
		"path", c.FullPath(),
		"error", appErr,
		"cause", appErr.Cause,
	)

	message := appErr.Message
	if appErr.Code == apperr.CodeUnknown {
		message = "An unexpected error occurred"
	}
	respondError(c, status, appErr.Code, message)
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeSessionLimitExceeded:
		return http.StatusConflict
	case apperr.CodeSessionTitleTooLong, apperr.CodeInvalidInput:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
