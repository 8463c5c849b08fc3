package domain

import (
	"time"

	"github.com/google/uuid"
)

// Token is a persisted access, refresh, id token or authorization code.
// Its ID doubles as the blacklist key.
type Token struct {
	ID              uuid.UUID
	ApplicationID   *uuid.UUID
	AuthorizationID *uuid.UUID
	Subject         string
	Type            TokenType
	Status          TokenStatus
	Payload         string     // Opaque signed representation (e.g. a JWT)
	ReferenceID     *string    // Opaque handle for reference-token introspection
	ExpiresAt       *time.Time // nil means non-expiring
	RedemptionDate  *time.Time // Set once a single-use token is consumed
	Properties      map[string]any
	CreatedAt       time.Time
}

// IsExpired reports whether the token has an expiry that lies before now,
// independent of its status.
func (t *Token) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// IsValid reports whether the token is still in the valid state.
func (t *Token) IsValid() bool {
	return t.Status == TokenStatusValid
}

// IsUsable reports whether validators may accept the token: valid and not expired.
func (t *Token) IsUsable(now time.Time) bool {
	return t.IsValid() && !t.IsExpired(now)
}

// RemainingLifetime returns how long the token has left at now, or fallback when
// it has no expiry. The result is never negative.
func (t *Token) RemainingLifetime(now time.Time, fallback time.Duration) time.Duration {
	if t.ExpiresAt == nil {
		return fallback
	}
	if d := t.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// TokenFilter narrows token listings. Zero values match anything.
type TokenFilter struct {
	Subject         string
	ApplicationID   *uuid.UUID
	AuthorizationID *uuid.UUID
	Status          TokenStatus
	Type            TokenType
}

// CreateTokenInput contains what the protocol engine hands over after issuing a token.
// With UseReference set, an opaque handle is generated and only its hash is stored.
type CreateTokenInput struct {
	ApplicationID   *uuid.UUID
	AuthorizationID *uuid.UUID
	Subject         string
	Type            TokenType
	Payload         string
	UseReference    bool
	ExpiresAt       *time.Time
	Properties      map[string]any
}

// CreateTokenOutput returns the stored token and, for reference tokens, the plain
// handle. SECURITY: ReferenceHandle is never retrievable again.
type CreateTokenOutput struct {
	Token           *Token
	ReferenceHandle string
}
