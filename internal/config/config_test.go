package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "GIN_MODE", "SESSION_SECRET", "SESSION_TTL_MINUTES", "SESSION_BACKEND",
		"STORE_BACKEND", "STORE_TIMEOUT_MS", "BCRYPT_COST", "CSRF_PROTECTION",
		"AUDIT_ENABLED", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "debug", cfg.GinMode)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.True(t, cfg.CSRFProtection)
	assert.False(t, cfg.AuditEnabled)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("SESSION_TTL_MINUTES", "30")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("CSRF_PROTECTION", "false")
	t.Setenv("AUDIT_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, BackendRedis, cfg.SessionBackend)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.CSRFProtection)
	assert.True(t, cfg.AuditEnabled)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			GinMode:        "debug",
			StoreBackend:   BackendMemory,
			SessionBackend: BackendMemory,
			SessionTTL:     time.Hour,
			StoreTimeout:   time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"unknown store", func(c *Config) { c.StoreBackend = "mongo" }, "STORE_BACKEND"},
		{"postgres without dsn", func(c *Config) { c.StoreBackend = BackendPostgres }, "DATABASE_URL"},
		{"unknown session backend", func(c *Config) { c.SessionBackend = "postgres" }, "SESSION_BACKEND"},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, "SESSION_TTL_MINUTES"},
		{"release without secret", func(c *Config) { c.GinMode = "release" }, "SESSION_SECRET"},
		{"release short secret", func(c *Config) {
			c.GinMode = "release"
			c.SessionSecret = "short"
		}, "at least 32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: "http://a.example, http://b.example,,"}
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins())
}
