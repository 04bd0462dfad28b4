// Package apperr defines the typed error taxonomy shared by the memo and
// session services and the storage layer.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Code identifies a class of failure.
type Code string

const (
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeSessionLimitExceeded Code = "SESSION_LIMIT_EXCEEDED"
	CodeSessionTitleTooLong  Code = "SESSION_TITLE_TOO_LONG"
	CodeSessionCreateFailed  Code = "SESSION_CREATE_FAILED"
	CodeSessionUpdateFailed  Code = "SESSION_UPDATE_FAILED"
	CodeSessionDeleteFailed  Code = "SESSION_DELETE_FAILED"
	CodeInvalidInput         Code = "INVALID_INPUT"
	CodeNotFound             Code = "NOT_FOUND"
	CodeStorageWriteFailed   Code = "STORAGE_WRITE_FAILED"
	CodeUnknown              Code = "UNKNOWN_ERROR"
)

// Severity grades how serious a failure is.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Domain groups errors by the component that raised them.
type Domain string

const (
	DomainGeneral Domain = ""
	DomainSession Domain = "session"
	DomainMemo    Domain = "memo"
	DomainStorage Domain = "storage"
)

// Error is the application error type. Message is safe to show to users;
// Context and Cause are for diagnostics only.
type Error struct {
	Domain   Domain
	Code     Code
	Message  string
	Severity Severity
	Context  map[string]any
	Cause    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Option customizes an Error at construction.
type Option func(*Error)

// WithSeverity overrides the default ERROR severity.
func WithSeverity(s Severity) Option {
	return func(e *Error) { e.Severity = s }
}

// WithContext adds a diagnostic key/value pair.
func WithContext(key string, value any) Option {
	return func(e *Error) {
		if e.Context == nil {
			e.Context = map[string]any{}
		}
		e.Context[key] = value
	}
}

// WithCause records the underlying failure.
func WithCause(cause error) Option {
	return func(e *Error) { e.Cause = cause }
}

// New builds an Error in the given domain.
func New(domain Domain, code Code, message string, opts ...Option) *Error {
	e := &Error{
		Domain:   domain,
		Code:     code,
		Message:  message,
		Severity: SeverityError,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session builds a session-domain error.
func Session(code Code, message string, opts ...Option) *Error {
	return New(DomainSession, code, message, opts...)
}

// Memo builds a memo-domain error.
func Memo(code Code, message string, opts ...Option) *Error {
	return New(DomainMemo, code, message, opts...)
}

// Storage builds a storage-domain error.
func Storage(code Code, message string, opts ...Option) *Error {
	return New(DomainStorage, code, message, opts...)
}

// From lifts err into the taxonomy. An *Error anywhere in the chain is
// returned unchanged; anything else becomes an UNKNOWN_ERROR (or the given
// code) carrying err as its cause.
func From(err error, code ...Code) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	c := CodeUnknown
	if len(code) > 0 {
		c = code[0]
	}
	return &Error{
		Code:     c,
		Message:  err.Error(),
		Severity: SeverityError,
		Cause:    err,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or
// UNKNOWN_ERROR.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsCritical reports whether err is a CRITICAL application error.
func IsCritical(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Severity == SeverityCritical
}

// Developer formats err for logs and debugging output.
func Developer(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		return fmt.Sprintf("[%s] %s", CodeUnknown, err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s][%s] %s\n", appErr.Code, appErr.Severity, appErr.Message)
	ctx, mErr := json.Marshal(appErr.Context)
	if mErr != nil || appErr.Context == nil {
		ctx = []byte("{}")
	}
	fmt.Fprintf(&b, "Context: %s\n", ctx)
	if appErr.Cause != nil {
		fmt.Fprintf(&b, "Cause: %s", appErr.Cause.Error())
	}
	return b.String()
}

// LogValue renders the error as a slog group.
func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", string(e.Code)),
		slog.String("severity", string(e.Severity)),
		slog.String("message", e.Message),
	}
	if e.Domain != DomainGeneral {
		attrs = append(attrs, slog.String("domain", string(e.Domain)))
	}
	if len(e.Context) > 0 {
		attrs = append(attrs, slog.Any("context", e.Context))
	}
	if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}
	return slog.GroupValue(attrs...)
}
