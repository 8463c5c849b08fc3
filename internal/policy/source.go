// Package policy serves the multi-device login policy from a locally cached snapshot
// that is refreshed from configuration once its TTL elapses.
package policy

import (
	"context"
	"log/slog"
	"strings"

	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

// Source loads the current login policy settings.
type Source interface {
	Load(ctx context.Context) (oauthDomain.LoginPolicySettings, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (oauthDomain.LoginPolicySettings, error)

// Load implements Source.
func (f SourceFunc) Load(ctx context.Context) (oauthDomain.LoginPolicySettings, error) {
	return f(ctx)
}

// Normalize lower-cases the new device policy and replaces out-of-range values with
// defaults, logging a warning for each correction.
func Normalize(settings oauthDomain.LoginPolicySettings, logger *slog.Logger) oauthDomain.LoginPolicySettings {
	defaults := oauthDomain.DefaultLoginPolicySettings()

	policy := oauthDomain.NewDevicePolicy(strings.ToLower(strings.TrimSpace(string(settings.NewDevicePolicy))))
	switch policy {
	case oauthDomain.NewDevicePolicyAllow, oauthDomain.NewDevicePolicyDeny:
		settings.NewDevicePolicy = policy
	default:
		logger.Warn("unknown new device policy, falling back to allow",
			slog.String("value", string(settings.NewDevicePolicy)),
		)
		settings.NewDevicePolicy = oauthDomain.NewDevicePolicyAllow
	}

	if settings.MaxDevices < 0 {
		logger.Warn("negative max devices, using default", slog.Int("value", settings.MaxDevices))
		settings.MaxDevices = defaults.MaxDevices
	}
	if settings.RefreshTokenLifetimeDays <= 0 {
		logger.Warn("non-positive refresh token lifetime, using default",
			slog.Int("value", settings.RefreshTokenLifetimeDays),
		)
		settings.RefreshTokenLifetimeDays = defaults.RefreshTokenLifetimeDays
	}
	if settings.AccessTokenLifetimeMinutes <= 0 {
		logger.Warn("non-positive access token lifetime, using default",
			slog.Int("value", settings.AccessTokenLifetimeMinutes),
		)
		settings.AccessTokenLifetimeMinutes = defaults.AccessTokenLifetimeMinutes
	}

	return settings
}
