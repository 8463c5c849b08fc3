package dto

import (
	"time"

	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

// RevokeResponse reports whether a single revocation changed the token or authorization.
type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

// RevokeSubjectResponse reports how many tokens a bulk revocation changed.
type RevokeSubjectResponse struct {
	RevokedCount int64 `json:"revoked_count"`
}

// ValidateTokenResponse reports whether a token is still accepted.
type ValidateTokenResponse struct {
	Active bool `json:"active"`
}

// LoginDecisionResponse is the outcome of a login policy check.
type LoginDecisionResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// MapLoginDecisionToResponse converts a decision to its response shape.
func MapLoginDecisionToResponse(decision *oauthDomain.LoginDecision) LoginDecisionResponse {
	return LoginDecisionResponse{
		Allowed: decision.Allowed,
		Reason:  decision.Reason,
	}
}

// LoginPolicyResponse exposes the current login policy snapshot.
type LoginPolicyResponse struct {
	AllowMultipleDevices       bool   `json:"allow_multiple_devices"`
	MaxDevices                 int    `json:"max_devices"`
	NewDevicePolicy            string `json:"new_device_policy"`
	RefreshTokenLifetimeDays   int    `json:"refresh_token_lifetime_days"`
	AccessTokenLifetimeMinutes int    `json:"access_token_lifetime_minutes"`
}

// MapLoginPolicyToResponse converts policy settings to their response shape.
func MapLoginPolicyToResponse(settings oauthDomain.LoginPolicySettings) LoginPolicyResponse {
	return LoginPolicyResponse{
		AllowMultipleDevices:       settings.AllowMultipleDevices,
		MaxDevices:                 settings.MaxDevices,
		NewDevicePolicy:            string(settings.NewDevicePolicy),
		RefreshTokenLifetimeDays:   settings.RefreshTokenLifetimeDays,
		AccessTokenLifetimeMinutes: settings.AccessTokenLifetimeMinutes,
	}
}

// AuthorizationResponse represents an authorization in API responses.
type AuthorizationResponse struct {
	ID            string    `json:"id"`
	ApplicationID *string   `json:"application_id,omitempty"`
	Subject       string    `json:"subject"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Scopes        []string  `json:"scopes"`
	CreatedAt     time.Time `json:"created_at"`
}

// MapAuthorizationToResponse converts a domain authorization to its response shape.
func MapAuthorizationToResponse(authz *oauthDomain.Authorization) AuthorizationResponse {
	response := AuthorizationResponse{
		ID:        authz.ID.String(),
		Subject:   authz.Subject,
		Type:      string(authz.Type),
		Status:    string(authz.Status),
		Scopes:    authz.Scopes,
		CreatedAt: authz.CreatedAt,
	}
	if response.Scopes == nil {
		response.Scopes = []string{}
	}
	if authz.ApplicationID != nil {
		appID := authz.ApplicationID.String()
		response.ApplicationID = &appID
	}
	return response
}

// ListAuthorizationsResponse wraps a page of authorizations.
type ListAuthorizationsResponse struct {
	Data []AuthorizationResponse `json:"data"`
}

// MapAuthorizationsToListResponse converts a page of authorizations.
func MapAuthorizationsToListResponse(authzs []*oauthDomain.Authorization) ListAuthorizationsResponse {
	data := make([]AuthorizationResponse, 0, len(authzs))
	for _, authz := range authzs {
		data = append(data, MapAuthorizationToResponse(authz))
	}
	return ListAuthorizationsResponse{Data: data}
}
