package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigDefaults(t *testing.T) {
	require.NoError(t, InitConfig())

	assert.Equal(t, "8080", AppConfig.Port)
	assert.Equal(t, "57", AppConfig.CountryCode)
	assert.Equal(t, "LCSY", AppConfig.LicenseKeyPrefix)
	assert.Equal(t, 3, AppConfig.ExpiryAlertDays)
	assert.Equal(t, 90, AppConfig.LogRetentionDays)
	assert.Equal(t, "file", AppConfig.RateLimitBackend)
	assert.False(t, AppConfig.WhatsAppEnabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EXPIRY_ALERT_DAYS", "7")
	t.Setenv("WHATSAPP_ENABLED", "true")
	t.Setenv("HEALTH_ERROR_RATE_PERCENT", "25.5")

	require.NoError(t, InitConfig())
	assert.Equal(t, "9090", AppConfig.Port)
	assert.Equal(t, 7, AppConfig.ExpiryAlertDays)
	assert.True(t, AppConfig.WhatsAppEnabled)
	assert.Equal(t, 25.5, AppConfig.ErrorRatePercent)
}

func TestMalformedEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("EXPIRY_ALERT_DAYS", "not-a-number")
	t.Setenv("WHATSAPP_ENABLED", "not-a-bool")

	require.NoError(t, InitConfig())
	assert.Equal(t, 3, AppConfig.ExpiryAlertDays)
	assert.False(t, AppConfig.WhatsAppEnabled)
}
