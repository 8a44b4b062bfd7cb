package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_NAME", "TOKEN_TTL_DAYS", "SHIPPING_FEE", "TRIAL_CITY", "CURRENCY", "COOKIE_SECURE"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "oiko", cfg.DBName)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 99.0, cfg.ShippingFee)
	assert.Equal(t, "Bengaluru", cfg.TrialCity)
	assert.Equal(t, "inr", cfg.Currency)
	assert.False(t, cfg.CookieSecure)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TOKEN_TTL_DAYS", "3")
	t.Setenv("SHIPPING_FEE", "49.5")
	t.Setenv("CURRENCY", "USD")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("S3_PUBLIC_BASE_URL", "https://cdn.example.com/")

	cfg := FromEnv()

	assert.Equal(t, 3*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 49.5, cfg.ShippingFee)
	assert.Equal(t, "usd", cfg.Currency)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "https://cdn.example.com", cfg.S3PublicBaseURL)
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("TOKEN_TTL_DAYS", "-2")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "lots")

	cfg := FromEnv()

	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
}

func TestValidateReportsMissingKeys(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
	assert.Contains(t, err.Error(), "JWT_SECRET")

	assert.NoError(t, Config{MongoURI: "mongodb://localhost", JWTSecret: "s"}.Validate())
}
