package policy

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
	oauthDomain "github.com/allisson/tokenkeeper/internal/oauth/domain"
)

// Configuration keys of the LoginPolicy section.
const (
	EnvPrefix = "TOKENKEEPER"

	keyAllowMultipleDevices       = "LoginPolicy.AllowMultipleDevices"
	keyMaxDevices                 = "LoginPolicy.MaxDevices"
	keyNewDevicePolicy            = "LoginPolicy.NewDevicePolicy"
	keyRefreshTokenLifetimeDays   = "LoginPolicy.RefreshTokenLifetimeDays"
	keyAccessTokenLifetimeMinutes = "LoginPolicy.AccessTokenLifetimeMinutes"
)

// ViperSource reads the LoginPolicy section from an optional config file with
// environment overrides, e.g. TOKENKEEPER_LOGINPOLICY_NEWDEVICEPOLICY=deny.
// The file is re-read on every Load so edits apply at the next cache refresh.
type ViperSource struct {
	v      *viper.Viper
	file   string
	logger *slog.Logger
}

// NewViperSource creates a source for file. An empty file means env and defaults only.
func NewViperSource(file string, logger *slog.Logger) *ViperSource {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := oauthDomain.DefaultLoginPolicySettings()
	v.SetDefault(keyAllowMultipleDevices, defaults.AllowMultipleDevices)
	v.SetDefault(keyMaxDevices, defaults.MaxDevices)
	v.SetDefault(keyNewDevicePolicy, string(defaults.NewDevicePolicy))
	v.SetDefault(keyRefreshTokenLifetimeDays, defaults.RefreshTokenLifetimeDays)
	v.SetDefault(keyAccessTokenLifetimeMinutes, defaults.AccessTokenLifetimeMinutes)

	if file != "" {
		v.SetConfigFile(file)
	}

	return &ViperSource{v: v, file: file, logger: logger}
}

// Load implements Source.
func (s *ViperSource) Load(context.Context) (oauthDomain.LoginPolicySettings, error) {
	if s.file != "" {
		if err := s.v.ReadInConfig(); err != nil {
			return oauthDomain.LoginPolicySettings{}, apperrors.Wrap(err, "failed to read login policy config")
		}
	}

	settings := oauthDomain.LoginPolicySettings{
		AllowMultipleDevices:       s.v.GetBool(keyAllowMultipleDevices),
		MaxDevices:                 s.v.GetInt(keyMaxDevices),
		NewDevicePolicy:            oauthDomain.NewDevicePolicy(s.v.GetString(keyNewDevicePolicy)),
		RefreshTokenLifetimeDays:   s.v.GetInt(keyRefreshTokenLifetimeDays),
		AccessTokenLifetimeMinutes: s.v.GetInt(keyAccessTokenLifetimeMinutes),
	}

	return Normalize(settings, s.logger), nil
}
