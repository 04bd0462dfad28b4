package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	err := Session(CodeSessionLimitExceeded, "too many")
	require.Equal(t, DomainSession, err.Domain)
	require.Equal(t, SeverityError, err.Severity)
	require.Equal(t, "too many", err.Error())
	require.Nil(t, err.Context)
}

func TestNew_Options(t *testing.T) {
	cause := errors.New("disk full")
	err := Memo(CodeSessionLimitExceeded, "limit",
		WithSeverity(SeverityWarning),
		WithContext("sessionId", "s1"),
		WithContext("currentCount", 50),
		WithCause(cause),
	)
	require.Equal(t, SeverityWarning, err.Severity)
	require.Equal(t, map[string]any{"sessionId": "s1", "currentCount": 50}, err.Context)
	require.ErrorIs(t, err, cause)
}

func TestFrom(t *testing.T) {
	require.Nil(t, From(nil))

	typed := Storage(CodeStorageWriteFailed, "write failed")
	require.Same(t, typed, From(typed))

	wrapped := fmt.Errorf("outer: %w", typed)
	require.Same(t, typed, From(wrapped))

	plain := errors.New("boom")
	lifted := From(plain)
	require.Equal(t, CodeUnknown, lifted.Code)
	require.Equal(t, "boom", lifted.Message)
	require.ErrorIs(t, lifted, plain)
	require.Same(t, lifted, From(lifted))

	require.Equal(t, CodeSessionUpdateFailed, From(plain, CodeSessionUpdateFailed).Code)
}

func TestCodeHelpers(t *testing.T) {
	err := fmt.Errorf("ctx: %w", Session(CodeUnauthorized, "sign in", WithSeverity(SeverityCritical)))
	require.Equal(t, CodeUnauthorized, CodeOf(err))
	require.True(t, IsCode(err, CodeUnauthorized))
	require.False(t, IsCode(err, CodeNotFound))
	require.True(t, IsCritical(err))
	require.False(t, IsCritical(errors.New("plain")))
	require.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
}

func TestDeveloper(t *testing.T) {
	err := Memo(CodeInvalidInput, "too long",
		WithContext("length", 301),
		WithCause(errors.New("validation")),
	)
	require.Equal(t, "[INVALID_INPUT][ERROR] too long\nContext: {\"length\":301}\nCause: validation", Developer(err))

	require.Equal(t, "[INVALID_INPUT][ERROR] bare\nContext: {}\n", Developer(Memo(CodeInvalidInput, "bare")))
	require.Equal(t, "[UNKNOWN_ERROR] boom", Developer(errors.New("boom")))
	require.Equal(t, "", Developer(nil))
}
