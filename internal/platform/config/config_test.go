package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:         "postgres://localhost/poolops",
		TimeZone:            "UTC",
		GracePeriod:         30 * time.Minute,
		EarlyClockIn:        10 * time.Minute,
		MaxBodyBytes:        1 << 20,
		RateLimitPerMinute:  60,
		MaxChemicalReadings: 10,
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GRACE_PERIOD_MINUTES", "")
	t.Setenv("EARLY_CLOCK_IN_MINUTES", "")
	t.Setenv("APP_TIMEZONE", "")

	cfg := Load()
	assert.Equal(t, 30*time.Minute, cfg.GracePeriod)
	assert.Equal(t, 10*time.Minute, cfg.EarlyClockIn)
	assert.Equal(t, "UTC", cfg.TimeZone)
	assert.Equal(t, 7*24*time.Hour, cfg.InviteTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GRACE_PERIOD_MINUTES", "15")
	t.Setenv("EARLY_CLOCK_IN_MINUTES", "5")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.GracePeriod)
	assert.Equal(t, 5*time.Minute, cfg.EarlyClockIn)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = " " }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.TimeZone = "Mars/Olympus" }, wantErr: true},
		{name: "negative grace", mutate: func(c *Config) { c.GracePeriod = -time.Minute }, wantErr: true},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true},
		{name: "email without host", mutate: func(c *Config) { c.EmailEnabled = true }, wantErr: true},
		{name: "tiny body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestApplyPolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gracePeriodMinutes: 20\ntimezone: America/Chicago\n"), 0o600))

	cfg := validConfig()
	cfg.PolicyFile = path
	require.NoError(t, cfg.ApplyPolicyFile())

	assert.Equal(t, 20*time.Minute, cfg.GracePeriod)
	assert.Equal(t, 10*time.Minute, cfg.EarlyClockIn, "unset keys keep their values")
	assert.Equal(t, "America/Chicago", cfg.TimeZone)
}

func TestApplyPolicyRejectsNegative(t *testing.T) {
	cfg := validConfig()
	err := cfg.applyPolicy([]byte("earlyClockInMinutes: -5\n"))
	require.Error(t, err)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := validConfig()
	cfg.TimeZone = "nowhere"
	assert.Equal(t, time.UTC, cfg.Location())
}
