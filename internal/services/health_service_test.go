package services

import (
	"fmt"
	"os"
	"testing"
	"time"

	"license-server/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLogLines(t *testing.T, path string, ts time.Time, levels ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer f.Close()
	for _, level := range levels {
		fmt.Fprintf(f, "time=%q level=%s msg=\"test entry\"\n", ts.Format(DateTimeLayout), level)
	}
}

func TestCalculateErrorRate(t *testing.T) {
	setupConfig(t)
	path := config.AppConfig.LogFile

	writeLogLines(t, path, time.Now(), "info", "info", "info", "error")
	assert.InDelta(t, 25.0, calculateErrorRate(path, time.Hour), 0.01)

	// Lines outside the window are ignored
	writeLogLines(t, path, time.Now().Add(-2*time.Hour), "error", "error")
	assert.InDelta(t, 25.0, calculateErrorRate(path, time.Hour), 0.01)
}

func TestCalculateErrorRateMissingFile(t *testing.T) {
	assert.Zero(t, calculateErrorRate("/nonexistent/path.log", time.Hour))
}

func TestParseLogTimestamp(t *testing.T) {
	ts, ok := parseLogTimestamp(`time="2024-03-15 09:30:00" level=info msg="hello"`)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 15, 9, 30, 0, 0, time.Local), ts)

	_, ok = parseLogTimestamp("no timestamp here")
	assert.False(t, ok)

	_, ok = parseLogTimestamp(`time="garbage" level=info`)
	assert.False(t, ok)
}

func TestCheckSystemHealthHealthy(t *testing.T) {
	setupConfig(t)
	config.AppConfig.ErrorRatePercent = 100
	config.AppConfig.DiskUsagePercent = 100
	config.AppConfig.MemoryUsagePercent = 100

	hs := NewHealthService(setupTestDB(t))
	health := hs.CheckSystemHealth()

	assert.Equal(t, StatusHealthy, health.Status)
	assert.True(t, health.DatabaseHealthy)
	assert.Empty(t, health.Alerts)
}

func TestCheckSystemHealthErrorRateCritical(t *testing.T) {
	setupConfig(t)
	config.AppConfig.ErrorRatePercent = 10
	config.AppConfig.DiskUsagePercent = 100
	config.AppConfig.MemoryUsagePercent = 100
	writeLogLines(t, config.AppConfig.LogFile, time.Now(), "error", "error", "error", "info")

	hs := NewHealthService(setupTestDB(t))
	health := hs.CheckSystemHealth()

	assert.Equal(t, StatusUnhealthy, health.Status)
	require.NotEmpty(t, health.Alerts)
	assert.Equal(t, "high_error_rate", health.Alerts[0].Type)
	assert.Equal(t, "critical", health.Alerts[0].Severity)

	recent := hs.RecentAlerts(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "high_error_rate", recent[0].Type)

	// Alert history is persisted for the next process
	restored := NewHealthService(nil)
	assert.Len(t, restored.RecentAlerts(1), 1)
}

func TestCheckSystemHealthDatabaseDown(t *testing.T) {
	setupConfig(t)
	config.AppConfig.ErrorRatePercent = 100
	config.AppConfig.DiskUsagePercent = 100
	config.AppConfig.MemoryUsagePercent = 100

	hs := NewHealthService(nil)
	health := hs.CheckSystemHealth()

	assert.Equal(t, StatusUnhealthy, health.Status)
	assert.False(t, health.DatabaseHealthy)
	assert.NotEmpty(t, health.DatabaseError)
}

func TestAlertHistoryBounded(t *testing.T) {
	setupConfig(t)
	hs := NewHealthService(nil)

	health := &HealthStatus{}
	for i := 0; i < maxStoredAlerts+50; i++ {
		hs.raise(health, Alert{Type: "test", Severity: "warning"})
	}

	hs.mu.RLock()
	defer hs.mu.RUnlock()
	assert.Len(t, hs.alerts, maxStoredAlerts)
}

func TestGetSystemStats(t *testing.T) {
	setupConfig(t)
	stats := GetSystemStats()

	assert.NotEmpty(t, stats.GoVersion)
	assert.Greater(t, stats.NumGoroutine, 0)
	assert.NotEmpty(t, stats.ServerTime)
}
