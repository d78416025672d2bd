package errors

import (
	"errors"
	"fmt"
)

// Common error types for the club client
var (
	// Authentication errors
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrSessionExpired        = errors.New("session expired")
	ErrNotAuthenticated      = errors.New("not authenticated")
	ErrRoleSelectionRequired = errors.New("role selection required")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrNoStoredCredentials = errors.New("no stored credentials")

	// Connectivity errors
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrTransportClosed    = errors.New("transport closed")
	ErrMalformedMessage   = errors.New("malformed realtime message")

	// OAuth errors
	ErrInvalidProvider      = errors.New("invalid oauth provider")
	ErrInvalidProviderToken = errors.New("invalid oauth provider token")

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
