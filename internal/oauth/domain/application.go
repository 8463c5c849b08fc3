package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Application is an OAuth client registration.
type Application struct {
	ID                     uuid.UUID       // Internal identifier (UUIDv7)
	ClientID               string          // Stable external identifier, globally unique
	ClientSecret           string          //nolint:gosec // argon2id hash, empty for public clients
	DisplayName            string          // Human-readable name
	Type                   ApplicationType // confidential or public
	ConsentType            ConsentType     // How consent is collected
	Permissions            []string        // Granted OAuth permissions (endpoints, grant types, scopes)
	RedirectURIs           []string        // Ordered absolute http/https callback URIs
	PostLogoutRedirectURIs []string        // Ordered absolute http/https logout URIs
	Requirements           []string        // Client requirements (e.g. PKCE)
	Properties             map[string]any  // Free-form extension data
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// IsConfidential reports whether the application authenticates with a secret.
func (a *Application) IsConfidential() bool {
	return a.Type == ApplicationTypeConfidential
}

// HasPermission reports whether permission was granted to the application.
func (a *Application) HasPermission(permission string) bool {
	return slices.Contains(a.Permissions, permission)
}

// HasRedirectURI reports whether uri is one of the registered redirect URIs.
// Comparison is exact, as required for OAuth redirect matching.
func (a *Application) HasRedirectURI(uri string) bool {
	return slices.Contains(a.RedirectURIs, uri)
}

// CreateApplicationInput contains the parameters for registering an application.
// For confidential clients an empty ClientSecret means one is generated.
type CreateApplicationInput struct {
	ClientID               string
	ClientSecret           string //nolint:gosec // plaintext, hashed before persistence
	DisplayName            string
	Type                   ApplicationType
	ConsentType            ConsentType
	Permissions            []string
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	Requirements           []string
	Properties             map[string]any
}

// CreateApplicationOutput is returned once after registration.
// SECURITY: PlainSecret is never retrievable again.
type CreateApplicationOutput struct {
	ID          uuid.UUID
	ClientID    string
	PlainSecret string
}

// UpdateApplicationInput contains the mutable fields of an application.
// ClientID, Type and the secret are changed through dedicated operations.
type UpdateApplicationInput struct {
	DisplayName            string
	ConsentType            ConsentType
	Permissions            []string
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	Requirements           []string
	Properties             map[string]any
}
