package auth

import (
	"errors"
	"strings"
)

// Sentinel errors for every decision the auth flow and the request gate can
// reach. Handlers translate them into HTTP status codes and action hints;
// everything else bubbles up as a 500.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserInactive     = errors.New("user account is inactive")
	ErrBadCredentials   = errors.New("incorrect password")
	ErrPlanNotFound     = errors.New("no plan associated with user")
	ErrPlanInactive     = errors.New("plan is inactive")
	ErrPlanExpired      = errors.New("plan has expired")
	ErrSessionNotActive = errors.New("session is not active")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenMalformed   = errors.New("token invalid")
	ErrMissingToken     = errors.New("access token required")
	ErrSecretKeyInvalid = errors.New("invalid plan secret key")
	ErrPlanCapacity     = errors.New("plan capacity reached")
	ErrRoleNotAllowed   = errors.New("role not allowed for this plan")
	ErrDuplicateUser    = errors.New("a user with that email or username already exists")
)

// ValidationError carries field-level messages for malformed input. It maps
// to HTTP 400 with the messages listed verbatim.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// AsValidation unwraps err into a *ValidationError when possible.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
