package userbase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-userbase"
)

func TestLoadSettingsDefaults(t *testing.T) {
	cfg, err := userbase.LoadSettingsFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "userbase", cfg.GetIssuer())
	assert.Equal(t, 24, cfg.GetTokenExpiration())
	assert.Equal(t, 720, cfg.GetExtendedTokenDuration())
	assert.Equal(t, userbase.DefaultPolicy(), cfg.Policy())
	assert.Equal(t, 8, cfg.CodeGenerationAttempts)

	assert.Equal(t, 24*time.Hour, userbase.SessionLifetime(cfg, false))
	assert.Equal(t, 720*time.Hour, userbase.SessionLifetime(cfg, true))
}

func TestLoadSettingsOverrides(t *testing.T) {
	cfg, err := userbase.LoadSettingsFrom(map[string]string{
		"USERBASE_AUDIENCE":            "web,cli",
		"USERBASE_MIN_PASSWORD_LENGTH": "10",
		"USERBASE_REQUIRE_INVITATION":  "false",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"web", "cli"}, cfg.GetAudience())
	assert.Equal(t, 10, cfg.Policy().MinPasswordLength)
	assert.False(t, cfg.Policy().RequireInvitation)
}

func TestLoadSettingsRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"bad int":            {"USERBASE_TOKEN_EXPIRATION": "soon"},
		"zero expiration":    {"USERBASE_TOKEN_EXPIRATION": "0"},
		"short extension":    {"USERBASE_TOKEN_EXPIRATION": "48", "USERBASE_EXTENDED_TOKEN_DURATION": "24"},
		"zero password":      {"USERBASE_MIN_PASSWORD_LENGTH": "0"},
		"inverted usernames": {"USERBASE_USERNAME_MIN_LENGTH": "10", "USERBASE_USERNAME_MAX_LENGTH": "5"},
	}
	for name, environ := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := userbase.LoadSettingsFrom(environ)
			assert.Error(t, err)
		})
	}
}
