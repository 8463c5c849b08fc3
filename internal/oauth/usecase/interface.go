// Package usecase orchestrates the OAuth stores, the revocation blacklist and the login
// policy snapshot. Repository and cache contracts are declared here, on the consumer side.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

// ApplicationRepository defines persistence operations for OAuth applications.
type ApplicationRepository interface {
	Create(ctx context.Context, app *oauthDomain.Application) error
	Update(ctx context.Context, app *oauthDomain.Application) error
	Delete(ctx context.Context, appID uuid.UUID) error
	Get(ctx context.Context, appID uuid.UUID) (*oauthDomain.Application, error)
	GetByClientID(ctx context.Context, clientID string) (*oauthDomain.Application, error)
	List(ctx context.Context, offset, limit int) ([]*oauthDomain.Application, error)
	Count(ctx context.Context) (int64, error)
}

// AuthorizationRepository defines persistence operations for authorizations.
type AuthorizationRepository interface {
	Create(ctx context.Context, authz *oauthDomain.Authorization) error
	Update(ctx context.Context, authz *oauthDomain.Authorization) error
	Delete(ctx context.Context, authzID uuid.UUID) error
	Get(ctx context.Context, authzID uuid.UUID) (*oauthDomain.Authorization, error)
	List(
		ctx context.Context,
		filter oauthDomain.AuthorizationFilter,
		offset, limit int,
	) ([]*oauthDomain.Authorization, error)
	Count(ctx context.Context, filter oauthDomain.AuthorizationFilter) (int64, error)
	Revoke(ctx context.Context, authzID uuid.UUID) (bool, error)
}

// TokenRepository defines persistence operations for tokens. Revoke, Redeem and
// RevokeMany only touch rows still in the valid state.
type TokenRepository interface {
	Create(ctx context.Context, token *oauthDomain.Token) error
	Update(ctx context.Context, token *oauthDomain.Token) error
	Delete(ctx context.Context, tokenID uuid.UUID) error
	Get(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*oauthDomain.Token, error)
	List(ctx context.Context, filter oauthDomain.TokenFilter, offset, limit int) ([]*oauthDomain.Token, error)
	Count(ctx context.Context, filter oauthDomain.TokenFilter) (int64, error)
	Revoke(ctx context.Context, tokenID uuid.UUID) (bool, error)
	Redeem(ctx context.Context, tokenID uuid.UUID, redeemedAt time.Time) (bool, error)
	RevokeMany(ctx context.Context, tokenIDs []uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	CountExpired(ctx context.Context, before time.Time) (int64, error)
}

// Blacklist is the revocation cache. Reads fail open.
type Blacklist interface {
	AddToBlacklist(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, tokenID string) bool
	BlacklistUserTokens(ctx context.Context, subject string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID, subject string, issuedAt time.Time) bool
}

// PolicyProvider returns the current login policy snapshot. It never fails.
type PolicyProvider interface {
	Get(ctx context.Context) oauthDomain.LoginPolicySettings
}

// ApplicationUseCase defines business logic for OAuth client registrations.
type ApplicationUseCase interface {
	// Create validates and registers an application. For confidential clients the
	// output carries the plain secret, which is never retrievable again.
	Create(
		ctx context.Context,
		input *oauthDomain.CreateApplicationInput,
	) (*oauthDomain.CreateApplicationOutput, error)
	Update(ctx context.Context, appID uuid.UUID, input *oauthDomain.UpdateApplicationInput) error
	Delete(ctx context.Context, appID uuid.UUID) error
	Get(ctx context.Context, appID uuid.UUID) (*oauthDomain.Application, error)
	GetByClientID(ctx context.Context, clientID string) (*oauthDomain.Application, error)
	List(ctx context.Context, offset, limit int) ([]*oauthDomain.Application, error)
	// RotateSecret replaces a confidential client's secret and returns the new plain value.
	RotateSecret(ctx context.Context, clientID string) (string, error)
	// VerifySecret authenticates a confidential client. Every failure returns
	// ErrInvalidClientCredentials.
	VerifySecret(ctx context.Context, clientID, plainSecret string) (*oauthDomain.Application, error)
}

// AuthorizationUseCase defines business logic for grants.
type AuthorizationUseCase interface {
	Create(ctx context.Context, input *oauthDomain.CreateAuthorizationInput) (*oauthDomain.Authorization, error)
	Get(ctx context.Context, authzID uuid.UUID) (*oauthDomain.Authorization, error)
	List(
		ctx context.Context,
		filter oauthDomain.AuthorizationFilter,
		offset, limit int,
	) ([]*oauthDomain.Authorization, error)
	// Revoke moves the authorization to revoked. Returns false when it was absent or
	// already revoked.
	Revoke(ctx context.Context, authzID uuid.UUID) (bool, error)
	Delete(ctx context.Context, authzID uuid.UUID) error
}

// TokenUseCase defines the persistence side of token issuance used by the protocol engine.
type TokenUseCase interface {
	Create(ctx context.Context, input *oauthDomain.CreateTokenInput) (*oauthDomain.CreateTokenOutput, error)
	Get(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error)
	// GetByReferenceID resolves a plain reference handle.
	GetByReferenceID(ctx context.Context, handle string) (*oauthDomain.Token, error)
	List(ctx context.Context, filter oauthDomain.TokenFilter, offset, limit int) ([]*oauthDomain.Token, error)
	// Redeem consumes a single-use token. Returns ErrTokenNotValid when it was already
	// consumed or revoked, and ErrTokenExpired when past its expiry.
	Redeem(ctx context.Context, tokenID uuid.UUID) (*oauthDomain.Token, error)
	// PurgeExpired deletes tokens that expired more than olderThanDays ago. With dryRun
	// set it only counts them.
	PurgeExpired(ctx context.Context, olderThanDays int, dryRun bool) (int64, error)
}

// TokenManagementUseCase defines revocation and login policy operations.
type TokenManagementUseCase interface {
	// RevokeAllUserTokens revokes every valid token of subject and returns how many
	// the store changed. Blacklist population is best-effort.
	RevokeAllUserTokens(ctx context.Context, subject string) (int64, error)
	// RevokeToken revokes one token. Returns false when it was absent or no longer valid.
	RevokeToken(ctx context.Context, tokenID uuid.UUID) (bool, error)
	CheckLoginPolicy(ctx context.Context, subject, deviceID string) (*oauthDomain.LoginDecision, error)
	GetLoginPolicy(ctx context.Context) oauthDomain.LoginPolicySettings
	// RevokeDeviceTokens always returns ErrUnsupported.
	RevokeDeviceTokens(ctx context.Context, subject, deviceID string) (int64, error)
	// ListActiveSessions always returns ErrUnsupported.
	ListActiveSessions(ctx context.Context, subject string) ([]oauthDomain.Session, error)
	// ValidateToken consults only the blacklist and returns ErrTokenRevoked on a hit.
	ValidateToken(ctx context.Context, tokenID uuid.UUID, subject string, issuedAt time.Time) error
}
