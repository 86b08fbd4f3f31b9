// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Entity resolution errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")

	// ErrUserNotFound indicates a user could not be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrSourceNotFound indicates a source could not be found.
	ErrSourceNotFound = errors.New("source not found")

	// ErrMessageNotFound indicates a message could not be found.
	ErrMessageNotFound = errors.New("message not found")

	// ErrForwardNotFound indicates a forwarded-message record could not be found.
	ErrForwardNotFound = errors.New("forwarded message not found")
)

// Storage state errors.
var (
	// ErrSchemaNotReady indicates the database is reachable but expected
	// relations are missing (migrations not applied yet).
	ErrSchemaNotReady = errors.New("database schema not ready")

	// ErrAlreadyExists indicates a unique constraint was hit on insert.
	ErrAlreadyExists = errors.New("already exists")
)

// Encoder and delivery errors.
var (
	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrDeliveryRejected indicates the platform definitively rejected a send.
	ErrDeliveryRejected = errors.New("delivery rejected")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
