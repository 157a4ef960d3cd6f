package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		old, had := os.LookupEnv(key)
		require.NoError(t, os.Unsetenv(key))
		if had {
			k, v := key, old
			t.Cleanup(func() { os.Setenv(k, v) })
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "PORT", "ENV", "LOG_LEVEL", "DATABASE_URL",
		"IL_THRESHOLD_BPS", "HEALTH_FACTOR_THRESHOLD_BPS",
		"DEFAULT_DAILY_TX_LIMIT", "ADMIN_SECRET", "CORS_ORIGINS")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 1000, cfg.ILThresholdBps)
	assert.Equal(t, 13000, cfg.HealthFactorThresholdBps)
	assert.Equal(t, 10, cfg.DefaultDailyTxLimit)
	assert.Equal(t, 100, cfg.RateLimitRPS)
	assert.Nil(t, cfg.CORSOrigins)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "ENV", "production")
	setEnv(t, "ADMIN_SECRET", "s3cret")
	setEnv(t, "IL_THRESHOLD_BPS", "500")
	setEnv(t, "HEALTH_FACTOR_THRESHOLD_BPS", "11000")
	setEnv(t, "CORS_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 500, cfg.ILThresholdBps)
	assert.Equal(t, 11000, cfg.HealthFactorThresholdBps)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	setEnv(t, "ENV", "development")
	setEnv(t, "IL_THRESHOLD_BPS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.ILThresholdBps)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "IL threshold zero",
			mutate:  func(c *Config) { c.ILThresholdBps = 0 },
			wantErr: "IL_THRESHOLD_BPS",
		},
		{
			name:    "IL threshold above 100%",
			mutate:  func(c *Config) { c.ILThresholdBps = 10001 },
			wantErr: "IL_THRESHOLD_BPS",
		},
		{
			name:    "health factor at 1.0",
			mutate:  func(c *Config) { c.HealthFactorThresholdBps = 10000 },
			wantErr: "HEALTH_FACTOR_THRESHOLD_BPS",
		},
		{
			name:    "daily limit zero",
			mutate:  func(c *Config) { c.DefaultDailyTxLimit = 0 },
			wantErr: "DEFAULT_DAILY_TX_LIMIT",
		},
		{
			name:    "production without admin secret",
			mutate:  func(c *Config) { c.Env = "production" },
			wantErr: "ADMIN_SECRET",
		},
		{
			name: "production with admin secret",
			mutate: func(c *Config) {
				c.Env = "production"
				c.AdminSecret = "s3cret"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Env:                      "development",
				ILThresholdBps:           DefaultILThresholdBps,
				HealthFactorThresholdBps: DefaultHealthFactorBps,
				DefaultDailyTxLimit:      DefaultDailyTxLimit,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
