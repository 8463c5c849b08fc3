package domain

import "time"

// NewDevicePolicy decides what happens when a subject with an active session logs in again.
type NewDevicePolicy string

const (
	NewDevicePolicyAllow NewDevicePolicy = "allow"
	NewDevicePolicyDeny  NewDevicePolicy = "deny"
)

// Default login policy values applied to any unset configuration key.
const (
	DefaultAllowMultipleDevices       = true
	DefaultMaxDevices                 = 0
	DefaultNewDevicePolicy            = NewDevicePolicyAllow
	DefaultRefreshTokenLifetimeDays   = 30
	DefaultAccessTokenLifetimeMinutes = 60
)

// LoginPolicySettings is the multi-device login policy read from configuration.
// MaxDevices is carried but not enforced: there is no session inventory to count.
type LoginPolicySettings struct {
	AllowMultipleDevices       bool            `json:"allow_multiple_devices"`
	MaxDevices                 int             `json:"max_devices"`
	NewDevicePolicy            NewDevicePolicy `json:"new_device_policy"`
	RefreshTokenLifetimeDays   int             `json:"refresh_token_lifetime_days"`
	AccessTokenLifetimeMinutes int             `json:"access_token_lifetime_minutes"`
}

// DefaultLoginPolicySettings returns the settings used when configuration is absent.
func DefaultLoginPolicySettings() LoginPolicySettings {
	return LoginPolicySettings{
		AllowMultipleDevices:       DefaultAllowMultipleDevices,
		MaxDevices:                 DefaultMaxDevices,
		NewDevicePolicy:            DefaultNewDevicePolicy,
		RefreshTokenLifetimeDays:   DefaultRefreshTokenLifetimeDays,
		AccessTokenLifetimeMinutes: DefaultAccessTokenLifetimeMinutes,
	}
}

// LoginDecision is the outcome of a login policy check. Reason is only set on
// rejection and never contains token internals.
type LoginDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Session would describe one logged-in device. No session registry exists, so it is
// only used as the element type of unsupported listings.
type Session struct {
	DeviceID  string
	CreatedAt time.Time
}
