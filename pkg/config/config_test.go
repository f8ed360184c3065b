package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("ENVIRONMENT", "dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 10, cfg.MessageRateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.MessageRateLimit.Window)
	assert.Equal(t, 5, cfg.LoginRateLimit.Limit)
	assert.Equal(t, 3*time.Second, cfg.NotificationIndicatorTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.True(t, cfg.UseDevTokens())
}

func TestLoadOverridesAndBadValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("MESSAGE_RATE_LIMIT", "3")
	t.Setenv("MESSAGE_RATE_WINDOW", "10s")
	t.Setenv("REQUEST_RATE_LIMIT", "not-a-number")
	t.Setenv("IDENTITY_CACHE_TTL", "-5m")
	t.Setenv("ALLOWED_ORIGINS", " https://petadopt.app, ,http://localhost:3000 ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MessageRateLimit.Limit)
	assert.Equal(t, 10*time.Second, cfg.MessageRateLimit.Window)
	assert.Equal(t, 60, cfg.RequestRateLimit.Limit)
	assert.Equal(t, 10*time.Minute, cfg.IdentityCacheTTL)
	assert.Equal(t, []string{"https://petadopt.app", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestValidateBackend(t *testing.T) {
	cfg := &Config{StoreBackend: BackendFirestore}
	assert.Error(t, cfg.Validate())

	cfg.FirebaseProject = "petadopt-dev"
	assert.NoError(t, cfg.Validate())

	cfg.StoreBackend = "postgres"
	assert.Error(t, cfg.Validate())

	cfg.StoreBackend = BackendMemory
	assert.NoError(t, cfg.Validate())
	cfg.Environment = "production"
	assert.Error(t, cfg.Validate())
}
