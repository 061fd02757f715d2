package errors

import (
	"errors"
	"fmt"
)

// Common error types for the console and its API-access layer
var (
	// Authentication errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrAuthCheckPending   = errors.New("authentication check still in progress")

	// Token errors
	ErrMissingToken   = errors.New("response did not contain a token")
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrTokenNotJWT    = errors.New("token is not a JWT")
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// Request errors
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidResponse = errors.New("invalid response")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
