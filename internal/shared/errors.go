package shared

import (
	"errors"

	"github.com/backoffice/backoffice/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = httpx.ErrNotFound
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing or rejected token.
	ErrUnauthorized = httpx.ErrUnauthorized
	// ErrForbidden indicates the principal lacks a permission.
	ErrForbidden = httpx.ErrForbidden
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage returns an error message that can be shown to API callers.
// Validation and lookup failures keep their text; anything else is hidden.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, httpx.ErrValidation),
		errors.Is(err, httpx.ErrNotFound),
		errors.Is(err, httpx.ErrDuplicate),
		errors.Is(err, httpx.ErrConflict),
		errors.Is(err, ErrInvalidCredentials):
		return err.Error()
	case errors.Is(err, httpx.ErrForbidden):
		return "you do not have access to this resource"
	case errors.Is(err, httpx.ErrUnauthorized):
		return "authentication required"
	default:
		return "something went wrong, please try again"
	}
}
