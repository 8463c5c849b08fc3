// Package errors holds the sentinel errors shared by the OAuth stores, the token
// management use cases and their transports. Stores and use cases wrap one of these
// sentinels; the HTTP layer (internal/httputil) and the CLI map them back to status
// codes and exit messages with Is.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: no application, authorization or token with that key. Revocation
	// paths turn it into a false result instead of surfacing it.
	ErrNotFound = errors.New("not found")

	// ErrConflict: a unique key is taken, such as an application client_id.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput: the request failed validation. The message is safe to show
	// to the caller.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized: missing or wrong client credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden: the client authenticated but lacks the required permission.
	ErrForbidden = errors.New("forbidden")

	// ErrUnsupported: the deployment cannot answer the question at all (for example
	// per-device revocation without a session registry), which is different from an
	// empty answer.
	ErrUnsupported = errors.New("unsupported")
)

// New returns a plain error, for packages that import this one instead of the
// standard errors package.
func New(message string) error {
	return errors.New(message)
}

// Wrap prefixes err with message and keeps it matchable by Is and As.
// A nil err stays nil so call sites can wrap unconditionally.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether err wraps target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain assignable to target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
