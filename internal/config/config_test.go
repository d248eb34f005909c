package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/openshelf")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppConfig.Port)
	assert.Equal(t, 10, cfg.DbConfig.MaxOpenConns)
	assert.Equal(t, 15*time.Minute, cfg.JWTConfig.AccessTTL)
	assert.Equal(t, 2*time.Minute, cfg.RedisConfig.ListTTL)
}

func TestLoadConfig_MissingDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/openshelf")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_BadDuration(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/openshelf")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_READ_TIMEOUT", "not-a-duration")

	_, err := LoadConfig()
	assert.Error(t, err)
}
