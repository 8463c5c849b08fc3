package domain

import (
	"github.com/allisson/tokenkeeper/internal/errors"
)

// OAuth core errors.
var (
	// ErrApplicationNotFound indicates no application matches the id or client id.
	ErrApplicationNotFound = errors.Wrap(errors.ErrNotFound, "application not found")

	// ErrAuthorizationNotFound indicates no authorization matches the id.
	ErrAuthorizationNotFound = errors.Wrap(errors.ErrNotFound, "authorization not found")

	// ErrTokenNotFound indicates no token matches the id or reference id.
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	// ErrClientIDConflict indicates the client id is already registered.
	ErrClientIDConflict = errors.Wrap(errors.ErrConflict, "client id already registered")

	// ErrInvalidClientCredentials covers unknown clients, public clients and bad secrets alike.
	ErrInvalidClientCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid client credentials")

	// ErrTokenRevoked indicates a token was found in the revocation cache.
	ErrTokenRevoked = errors.Wrap(errors.ErrUnauthorized, "token revoked")

	// ErrTokenExpired indicates a token is past its expiry.
	ErrTokenExpired = errors.Wrap(errors.ErrUnauthorized, "token expired")

	// ErrTokenNotValid indicates a token is in a terminal state.
	ErrTokenNotValid = errors.Wrap(errors.ErrUnauthorized, "token is not valid")

	// ErrUnsupported is returned by device-scoped operations: no session registry exists,
	// so "no devices" cannot be told apart from "cannot know".
	ErrUnsupported = errors.Wrap(errors.ErrUnsupported, "device sessions are not tracked")
)
