// Package domain defines the OAuth application, authorization and token models of the
// identity gateway core, plus the login-policy value object.
package domain

// ApplicationType tells whether a client can keep a secret.
type ApplicationType string

const (
	// ApplicationTypeConfidential clients authenticate with a hashed secret.
	ApplicationTypeConfidential ApplicationType = "confidential"

	// ApplicationTypePublic clients (SPAs, native apps) carry no secret.
	ApplicationTypePublic ApplicationType = "public"
)

// ConsentType controls how user consent is collected for an application.
type ConsentType string

const (
	ConsentTypeExplicit   ConsentType = "explicit"
	ConsentTypeExternal   ConsentType = "external"
	ConsentTypeImplicit   ConsentType = "implicit"
	ConsentTypeSystematic ConsentType = "systematic"
)

// AuthorizationType distinguishes stored consents from one-off grants.
type AuthorizationType string

const (
	AuthorizationTypePermanent AuthorizationType = "permanent"
	AuthorizationTypeAdHoc     AuthorizationType = "ad-hoc"
)

// AuthorizationStatus is the lifecycle state of an authorization.
type AuthorizationStatus string

const (
	AuthorizationStatusValid   AuthorizationStatus = "valid"
	AuthorizationStatusRevoked AuthorizationStatus = "revoked"
)

// TokenType identifies what a token is used for.
type TokenType string

const (
	TokenTypeAccess            TokenType = "access_token"
	TokenTypeRefresh           TokenType = "refresh_token"
	TokenTypeID                TokenType = "id_token"
	TokenTypeAuthorizationCode TokenType = "authorization_code"
)

// TokenStatus is the lifecycle state of a token. Revoked and redeemed are terminal.
type TokenStatus string

const (
	TokenStatusValid    TokenStatus = "valid"
	TokenStatusRevoked  TokenStatus = "revoked"
	TokenStatusRedeemed TokenStatus = "redeemed"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s TokenStatus) IsTerminal() bool {
	return s == TokenStatusRevoked || s == TokenStatusRedeemed
}

// PermissionManageTokens lets a confidential application call the revocation and login
// policy endpoints with its client credentials.
const PermissionManageTokens = "tokenkeeper:manage"
