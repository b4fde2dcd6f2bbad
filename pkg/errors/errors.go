package errors

import (
	stderrors "errors"
	"fmt"
	"unicode/utf8"
)

// Kind is the user-facing category of a failure.
type Kind string

const (
	KindValidation              Kind = "VALIDATION_ERROR"
	KindConfig                  Kind = "CONFIG_ERROR"
	KindConfigMalformed         Kind = "CONFIG_MALFORMED"
	KindCredentialTooShort      Kind = "CREDENTIAL_TOO_SHORT"
	KindSessionExpired          Kind = "SESSION_EXPIRED"
	KindRateLimited             Kind = "RATE_LIMITED"
	KindJobNotFound             Kind = "JOB_NOT_FOUND"
	KindAuthFailed              Kind = "AUTH_FAILED"
	KindNetwork                 Kind = "NETWORK_ERROR"
	KindTimeout                 Kind = "TIMEOUT"
	KindProviderExecutionFailed Kind = "PROVIDER_EXECUTION_FAILED"
	KindProvider                Kind = "PROVIDER_ERROR"
	KindNotFound                Kind = "NOT_FOUND"
	KindConflict                Kind = "CONFLICT"
	KindStorage                 Kind = "STORAGE_ERROR"
	KindCache                   Kind = "CACHE_ERROR"
	KindInternal                Kind = "INTERNAL_ERROR"
)

var kindStatus = map[Kind]int{
	KindValidation:              400,
	KindConfig:                  500,
	KindConfigMalformed:         500,
	KindCredentialTooShort:      400,
	KindSessionExpired:          401,
	KindRateLimited:             429,
	KindJobNotFound:             502,
	KindAuthFailed:              502,
	KindNetwork:                 502,
	KindTimeout:                 504,
	KindProviderExecutionFailed: 502,
	KindProvider:                502,
	KindNotFound:                404,
	KindConflict:                409,
	KindStorage:                 500,
	KindCache:                   500,
	KindInternal:                500,
}

// HTTPStatus returns the response status used for a kind.
func HTTPStatus(kind Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return 500
}

// AppError is the single error type surfaced to callers of the service.
type AppError struct {
	Message    string
	Kind       Kind
	StatusCode int
	// Detail is a human-readable diagnostic, e.g. the raw provider message.
	Detail  string
	Context map[string]any
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *AppError {
	return &AppError{
		Message:    message,
		Kind:       kind,
		StatusCode: HTTPStatus(kind),
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// KindOf extracts the kind of err, or KindInternal when err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As is a shortcut for errors.As with *AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func NewValidationError(message, field string, value any) *AppError {
	return New(KindValidation, message).
		WithContext("field", field).
		WithContext("value", value)
}

func NewConfigError(message, field string) *AppError {
	return New(KindConfig, message).WithContext("field", field)
}

// NewProviderError describes a non-2xx provider response. The body is truncated.
func NewProviderError(kind Kind, message string, statusCode int, body string) *AppError {
	e := New(kind, message)
	if statusCode > 0 {
		e.WithContext("status", statusCode)
	}
	if body != "" {
		e.WithContext("body", Truncate(body, 512))
	}
	return e
}

func NewTimeoutError(message string, attempts int) *AppError {
	return New(KindTimeout, message).WithContext("attempts", attempts)
}

func NewNotFoundError(resource string, id any) *AppError {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("id", id)
}

func NewStorageError(message, operation string, cause error) *AppError {
	return New(KindStorage, message).
		WithContext("operation", operation).
		WithCause(cause)
}

func NewCacheError(message, operation, key string, cause error) *AppError {
	return New(KindCache, message).
		WithContext("operation", operation).
		WithContext("key", key).
		WithCause(cause)
}

// Truncate cuts s to maxRunes runes and marks the cut with "...". Multi-byte runes are never split.
func Truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}
