package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "DB_PATH", "JWT_SECRET", "TOKEN_TTL", "TIMEZONE", "HTTP_TIMEOUT", "IDEMPOTENCY_TTL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "backoffice.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Error(t, cfg.ValidateServer(), "serve needs a JWT secret")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("TIMEZONE", "Asia/Karachi")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "Asia/Karachi", cfg.Location.String())
	assert.NoError(t, cfg.ValidateServer())
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("TOKEN_TTL", "forever")
	_, err := Load()
	assert.ErrorContains(t, err, "TOKEN_TTL")

	t.Setenv("TOKEN_TTL", "-1h")
	_, err = Load()
	assert.ErrorContains(t, err, "TOKEN_TTL must be positive")

	t.Setenv("TOKEN_TTL", "")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.ErrorContains(t, err, "TIMEZONE")
}
