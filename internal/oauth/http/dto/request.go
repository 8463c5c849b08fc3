// Package dto provides data transfer objects for the OAuth HTTP handlers.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
	customValidation "github.com/allisson/tokenkeeper/internal/validation"
)

// CheckLoginPolicyRequest asks whether a subject may log in from a device.
type CheckLoginPolicyRequest struct {
	Subject  string `json:"subject"`
	DeviceID string `json:"device_id"`
}

// Validate checks if the login policy request is valid. The device id is optional.
func (r *CheckLoginPolicyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Subject,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.DeviceID, validation.Length(0, 255)),
	)
}

// ValidateTokenRequest asks whether a self-contained token has been revoked.
type ValidateTokenRequest struct {
	TokenID  string    `json:"token_id"`
	Subject  string    `json:"subject"`
	IssuedAt time.Time `json:"issued_at"`
}

// Validate checks if the validate token request is valid.
func (r *ValidateTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TokenID, validation.Required, customValidation.UUID),
		validation.Field(&r.Subject, validation.Length(0, 255)),
		validation.Field(&r.IssuedAt, validation.Required),
	)
}

// ParseAuthorizationStatus maps the optional status query parameter to a filter value.
func ParseAuthorizationStatus(value string) (oauthDomain.AuthorizationStatus, error) {
	status := oauthDomain.AuthorizationStatus(value)
	err := validation.Validate(status, validation.In(
		oauthDomain.AuthorizationStatusValid,
		oauthDomain.AuthorizationStatusRevoked,
	).Error("must be one of: valid, revoked"))
	if err != nil {
		return "", err
	}
	return status, nil
}
