// Package errors defines the sentinel errors shared by every domain package.
// Domain errors wrap one of these so the HTTP layer can pick a status code
// without knowing the domain.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the group, member or key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness or concurrent-modification conflict.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates a request rejected before any state was touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates a missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the principal may not perform the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrLocked indicates the resource is held by another operation.
	ErrLocked = errors.New("locked")
)

// New is errors.New.
func New(message string) error {
	return errors.New(message)
}

// Wrap returns "message: err" keeping err in the chain. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join is errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
