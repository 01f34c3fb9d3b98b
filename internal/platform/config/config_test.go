package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range keys {
		t.Setenv(k, "")
	}
	t.Setenv("SHUTDOWN_TIMEOUT", "10s")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "60")
	t.Setenv("FRONTEND_BASE_URL", "http://localhost:3000/")
	t.Setenv("PORT", "8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "http://localhost:3000", cfg.FrontendBaseURL)
	assert.Equal(t, AuthModeDev, cfg.AuthMode)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoad_InfersJWTMode(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("AUTH_MODE", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DISPLAY_TIMEZONE", "Asia/Manila")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, AuthModeJWT, cfg.AuthMode)
	assert.Equal(t, "Asia/Manila", cfg.Location().String())
}

func TestLoad_DatabaseRequiresExplicitAuthMode(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range keys {
		t.Setenv(k, "")
	}
	t.Setenv("DISPLAY_TIMEZONE", "UTC")
	t.Setenv("DB_DSN", "postgres://app@db:5432/health")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_MODE must be explicit")

	t.Setenv("AUTH_MODE", "dev")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, AuthModeDev, cfg.AuthMode)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"dev", Config{AuthMode: AuthModeDev, DisplayTimezone: "UTC"}, true},
		{"jwt without secret", Config{AuthMode: AuthModeJWT, DisplayTimezone: "UTC"}, false},
		{"remote without url", Config{AuthMode: AuthModeRemote, DisplayTimezone: "UTC"}, false},
		{"unknown mode", Config{AuthMode: "ldap", DisplayTimezone: "UTC"}, false},
		{"empty mode", Config{DBDSN: "postgres://db", DisplayTimezone: "UTC"}, false},
		{"bad timezone", Config{AuthMode: AuthModeDev, DisplayTimezone: "Mars/Olympus"}, false},
		{"negative rate", Config{AuthMode: AuthModeDev, DisplayTimezone: "UTC", RateLimitPerMinute: -1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
