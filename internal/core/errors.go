package core

import "fmt"

// Error codes
const (
	ErrCodeInvalidVersion      = "INVALID_VERSION"
	ErrCodeEndpointRequired    = "ENDPOINT_REQUIRED"
	ErrCodeUnsupportedEndpoint = "UNSUPPORTED_ENDPOINT"
	ErrCodeInvalidConfig       = "INVALID_CONFIG"
	ErrCodeEndpointDisabled    = "ENDPOINT_DISABLED"
	ErrCodeInvalidQuery        = "INVALID_QUERY"
)

// Sentinels for errors.Is; matching is by code only.
var (
	ErrInvalidVersion      = &AppError{Code: ErrCodeInvalidVersion}
	ErrEndpointRequired    = &AppError{Code: ErrCodeEndpointRequired}
	ErrUnsupportedEndpoint = &AppError{Code: ErrCodeUnsupportedEndpoint}
	ErrInvalidConfig       = &AppError{Code: ErrCodeInvalidConfig}
	ErrEndpointDisabled    = &AppError{Code: ErrCodeEndpointDisabled}
	ErrInvalidQuery        = &AppError{Code: ErrCodeInvalidQuery}
)

// AppError is a classified request or configuration failure.
type AppError struct {
	Code    string
	Message string
	Path    string
	Value   string
	Cause   error
}

// Error implements error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewInvalidVersionError reports a resolved version that is not a two-character "v" token.
func NewInvalidVersionError(path, value string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidVersion,
		Message: fmt.Sprintf("[%s] Invalid version: %q", path, value),
		Path:    path,
		Value:   value,
	}
}

// NewEndpointRequiredError reports a request without any endpoint name.
func NewEndpointRequiredError(path string) *AppError {
	return &AppError{
		Code:    ErrCodeEndpointRequired,
		Message: fmt.Sprintf("[%s] Endpoint is required", path),
		Path:    path,
	}
}

// NewUnsupportedEndpointError reports an endpoint outside the supported set.
func NewUnsupportedEndpointError(path, endpoint string) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupportedEndpoint,
		Message: fmt.Sprintf("[%s] Unsupported endpoint: %q", path, endpoint),
		Path:    path,
		Value:   endpoint,
	}
}

// NewEndpointDisabledError reports a supported endpoint that has no credentials configured.
func NewEndpointDisabledError(path, endpoint string) *AppError {
	return &AppError{
		Code:    ErrCodeEndpointDisabled,
		Message: fmt.Sprintf("[%s] Endpoint %q is not configured", path, endpoint),
		Path:    path,
		Value:   endpoint,
	}
}

// NewInvalidQueryError reports an invalid list query parameter.
func NewInvalidQueryError(path, field, value string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidQuery,
		Message: fmt.Sprintf("[%s] Invalid %s: %q", path, field, value),
		Path:    path,
		Value:   value,
	}
}

// NewInvalidConfigError reports an invalid configuration field.
func NewInvalidConfigError(field, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidConfig,
		Message: fmt.Sprintf("Invalid configuration for %s: %s", field, reason),
		Value:   field,
	}
}
