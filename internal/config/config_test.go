package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	vars := []string{
		"TRENDSCORE_HTTP_PORT", "TRENDSCORE_REDIS_ADDR", "TRENDSCORE_REDIS_DB",
		"TRENDSCORE_POSTGRES_DSN", "TRENDSCORE_FRESH_TTL_SECONDS", "TRENDSCORE_STALE_TTL_SECONDS",
		"TRENDSCORE_MAX_ATTEMPTS", "TRENDSCORE_BASE_DELAY_MS", "TRENDSCORE_BLOCKED_PENALTY_MS",
		"TRENDSCORE_REQUEST_DELAY_MS", "TRENDSCORE_MOCK_PROVIDER", "TRENDSCORE_COUNTRIES_FILE",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 86400, cfg.FreshTTLSeconds)
	assert.Equal(t, 172800, cfg.StaleTTLSeconds)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 5000*time.Millisecond, cfg.BaseDelay())
	assert.Equal(t, 3000*time.Millisecond, cfg.BlockedPenalty())
	assert.Equal(t, 4000*time.Millisecond, cfg.RequestDelay())
	assert.False(t, cfg.MockProvider)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRENDSCORE_HTTP_PORT", "9090")
	t.Setenv("TRENDSCORE_MOCK_PROVIDER", "true")
	t.Setenv("TRENDSCORE_MAX_ATTEMPTS", "5")

	cfg := Load()

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.True(t, cfg.MockProvider)
	assert.Equal(t, 5, cfg.MaxAttempts)
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRENDSCORE_HTTP_PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{HTTPPort: 8080, FreshTTLSeconds: 86400, StaleTTLSeconds: 172800, MaxAttempts: 3}, false},
		{"bad port", Config{HTTPPort: 0, FreshTTLSeconds: 86400, StaleTTLSeconds: 172800, MaxAttempts: 3}, true},
		{"stale too short", Config{HTTPPort: 8080, FreshTTLSeconds: 86400, StaleTTLSeconds: 100000, MaxAttempts: 3}, true},
		{"zero attempts", Config{HTTPPort: 8080, FreshTTLSeconds: 86400, StaleTTLSeconds: 172800, MaxAttempts: 0}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadCountries(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/countries.yaml"
	require.NoError(t, os.WriteFile(path, []byte("countries:\n  - code: MX\n    display_name: México\n  - code: CR\n    display_name: Costa Rica\n"), 0o644))

	cf, err := LoadCountries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"MX", "CR"}, cf.Codes())
	assert.True(t, cf.IsSupported("MX"))
	assert.False(t, cf.IsSupported("US"))
}

func TestLoadCountries_MissingFile(t *testing.T) {
	_, err := LoadCountries("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadCountries_EmptyList(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/empty.yaml"
	require.NoError(t, os.WriteFile(path, []byte("countries: []\n"), 0o644))

	_, err := LoadCountries(path)
	assert.Error(t, err)
}
