// Package errs holds the error taxonomy shared by use cases and handlers.
// Handlers map errors to HTTP status with HTTPStatus; nothing below the
// delivery layer knows about status codes except RemoteError, which carries
// the provider's own status for diagnostics.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrConflict indicates a unique constraint violation (e.g. email taken).
var ErrConflict = errors.New("already exists")

// AuthError means a credential is missing, invalid or could not be refreshed.
// The user has to reauthorize.
type AuthError struct {
	Msg string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteError is a failed call to a third-party API.
type RemoteError struct {
	Provider string
	Status   int
	Err      error
}

func (e *RemoteError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s api error (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s api error: %v", e.Provider, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NotFoundError is returned when a local item is absent or owned by someone else.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// ValidationError is a malformed request payload.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Auth(msg string, err error) error { return &AuthError{Msg: msg, Err: err} }

func Remote(provider string, status int, err error) error {
	return &RemoteError{Provider: provider, Status: status, Err: err}
}

func NotFound(resource string) error { return &NotFoundError{Resource: resource} }

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ProviderStatus returns the provider status attached to a RemoteError, or 0.
func ProviderStatus(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	var (
		ae *AuthError
		nf *NotFoundError
		ve *ValidationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ae):
		return http.StatusUnauthorized
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
