package domain

import (
	"time"

	"github.com/google/uuid"
)

// Authorization records a subject's consent for an application to hold a scope set.
// Status only moves from valid to revoked.
type Authorization struct {
	ID            uuid.UUID
	ApplicationID *uuid.UUID // nil for grants not bound to a client
	Subject       string     // Opaque external user identifier
	Type          AuthorizationType
	Status        AuthorizationStatus
	Scopes        []string
	Properties    map[string]any
	CreatedAt     time.Time
}

// IsValid reports whether the authorization has not been revoked.
func (a *Authorization) IsValid() bool {
	return a.Status == AuthorizationStatusValid
}

// AuthorizationFilter narrows authorization listings. Zero values match anything.
type AuthorizationFilter struct {
	Subject       string
	ApplicationID *uuid.UUID
	Status        AuthorizationStatus
}

// CreateAuthorizationInput contains the parameters for persisting a new grant.
type CreateAuthorizationInput struct {
	ApplicationID *uuid.UUID
	Subject       string
	Type          AuthorizationType
	Scopes        []string
	Properties    map[string]any
}
