package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"license-server/internal/config"
	"license-server/pkg/logging"

	"gorm.io/gorm"
)

// Health statuses
const (
	StatusHealthy   = "healthy"
	StatusWarning   = "warning"
	StatusUnhealthy = "unhealthy"
)

// maxStoredAlerts caps the alert ring buffer
const maxStoredAlerts = 100

// Alert is one raised threshold violation
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
}

// HealthStatus is one snapshot of the system checks
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Alerts    []Alert   `json:"alerts"`

	ErrorRatePercent   float64 `json:"error_rate_percent"`
	DiskUsagePercent   float64 `json:"disk_usage_percent"`
	MemoryUsagePercent float64 `json:"memory_usage_percent"`
	DatabaseHealthy    bool    `json:"database_healthy"`
	DatabaseError      string  `json:"database_error,omitempty"`
}

// HealthService evaluates error rate, disk, memory and database
// connectivity against configured thresholds and keeps a bounded alert
// history on disk.
type HealthService struct {
	db      *gorm.DB
	mu      sync.RWMutex
	alerts  []Alert
	stopCh  chan struct{}
	stopped bool
}

// NewHealthService creates a health monitor and restores persisted alerts
func NewHealthService(db *gorm.DB) *HealthService {
	hs := &HealthService{
		db:     db,
		stopCh: make(chan struct{}),
	}
	hs.loadAlerts()
	return hs
}

// Start launches the periodic background check. A zero interval disables it.
func (hs *HealthService) Start() {
	interval := time.Duration(config.AppConfig.HealthCheckInterval) * time.Second
	if interval <= 0 {
		return
	}

	logging.Infof("Starting health monitor, interval %s", interval)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		hs.CheckSystemHealth()
		for {
			select {
			case <-ticker.C:
				hs.CheckSystemHealth()
			case <-hs.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the background check loop
func (hs *HealthService) Stop() {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.stopped {
		return
	}
	close(hs.stopCh)
	hs.stopped = true
}

// CheckSystemHealth runs every check once and returns the snapshot.
// Critical signals (error rate, database) force unhealthy; disk and memory
// violations only escalate to warning.
func (hs *HealthService) CheckSystemHealth() *HealthStatus {
	cfg := config.AppConfig
	health := &HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Alerts:    []Alert{},
	}

	health.ErrorRatePercent = calculateErrorRate(cfg.LogFile, time.Hour)
	if health.ErrorRatePercent > cfg.ErrorRatePercent {
		hs.raise(health, Alert{
			Type:     "high_error_rate",
			Message:  fmt.Sprintf("high error rate: %.2f%%", health.ErrorRatePercent),
			Severity: "critical",
		})
		health.Status = StatusUnhealthy
	}

	health.DiskUsagePercent = diskUsagePercent(".")
	if health.DiskUsagePercent > cfg.DiskUsagePercent {
		hs.raise(health, Alert{
			Type:     "low_disk_space",
			Message:  fmt.Sprintf("low disk space: %.2f%% used", health.DiskUsagePercent),
			Severity: "warning",
		})
		if health.Status != StatusUnhealthy {
			health.Status = StatusWarning
		}
	}

	health.MemoryUsagePercent = memoryUsagePercent(cfg.MemoryLimitMB)
	if health.MemoryUsagePercent > cfg.MemoryUsagePercent {
		hs.raise(health, Alert{
			Type:     "high_memory_usage",
			Message:  fmt.Sprintf("high memory usage: %.2f%%", health.MemoryUsagePercent),
			Severity: "warning",
		})
		if health.Status != StatusUnhealthy {
			health.Status = StatusWarning
		}
	}

	if err := hs.pingDatabase(); err != nil {
		health.DatabaseHealthy = false
		health.DatabaseError = err.Error()
		hs.raise(health, Alert{
			Type:     "database_issue",
			Message:  "database problem: " + err.Error(),
			Severity: "critical",
		})
		health.Status = StatusUnhealthy
	} else {
		health.DatabaseHealthy = true
	}

	return health
}

func (hs *HealthService) pingDatabase() error {
	if hs.db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := hs.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// raise attaches the alert to the snapshot and records it in the bounded
// on-disk history.
func (hs *HealthService) raise(health *HealthStatus, alert Alert) {
	alert.Timestamp = time.Now()
	health.Alerts = append(health.Alerts, alert)

	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.alerts = append(hs.alerts, alert)
	if len(hs.alerts) > maxStoredAlerts {
		hs.alerts = hs.alerts[len(hs.alerts)-maxStoredAlerts:]
	}
	hs.saveAlertsLocked()
}

// RecentAlerts returns alerts raised within the trailing hour window
func (hs *HealthService) RecentAlerts(hours int) []Alert {
	if hours <= 0 {
		hours = 24
	}
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	hs.mu.RLock()
	defer hs.mu.RUnlock()
	recent := []Alert{}
	for _, a := range hs.alerts {
		if a.Timestamp.After(cutoff) {
			recent = append(recent, a)
		}
	}
	return recent
}

func (hs *HealthService) loadAlerts() {
	path := config.AppConfig.AlertsFile
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var alerts []Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return
	}
	if len(alerts) > maxStoredAlerts {
		alerts = alerts[len(alerts)-maxStoredAlerts:]
	}
	hs.alerts = alerts
}

func (hs *HealthService) saveAlertsLocked() {
	path := config.AppConfig.AlertsFile
	if path == "" {
		return
	}
	data, err := json.Marshal(hs.alerts)
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		logging.Errorf("Failed to persist alerts: %v", err)
	}
}

// calculateErrorRate scans the log file for lines within the window and
// returns the percentage tagged as errors. The line format is the logging
// package's: time="2006-01-02 15:04:05" level=... msg=...
func calculateErrorRate(logPath string, window time.Duration) float64 {
	f, err := os.Open(logPath)
	if err != nil {
		return 0
	}
	defer f.Close()

	cutoff := time.Now().Add(-window)
	total := 0
	errors := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		ts, ok := parseLogTimestamp(line)
		if !ok || ts.Before(cutoff) {
			continue
		}
		total++
		if strings.Contains(line, "level=error") {
			errors++
		}
	}

	if total == 0 {
		return 0
	}
	return float64(errors) / float64(total) * 100
}

func parseLogTimestamp(line string) (time.Time, bool) {
	const marker = `time="`
	start := strings.Index(line, marker)
	if start < 0 {
		return time.Time{}, false
	}
	rest := line[start+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(DateTimeLayout, rest[:end], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// diskUsagePercent returns used disk space of the filesystem holding path
func diskUsagePercent(path string) float64 {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0
	}
	total := float64(stat.Blocks) * float64(stat.Bsize)
	if total == 0 {
		return 0
	}
	free := float64(stat.Bavail) * float64(stat.Bsize)
	return (total - free) / total * 100
}

// memoryUsagePercent compares the heap in use against the configured limit
func memoryUsagePercent(limitMB int) float64 {
	if limitMB <= 0 {
		return 0
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	pct := float64(m.Alloc) / float64(limitMB*1024*1024) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// SystemStats is the ad-hoc resource snapshot for the admin panel
type SystemStats struct {
	DiskUsagePercent   float64 `json:"disk_usage"`
	MemoryUsagePercent float64 `json:"memory_usage"`
	GoVersion          string  `json:"go_version"`
	NumGoroutine       int     `json:"num_goroutine"`
	ServerTime         string  `json:"server_time"`
}

// GetSystemStats returns the current resource snapshot
func GetSystemStats() SystemStats {
	return SystemStats{
		DiskUsagePercent:   diskUsagePercent("."),
		MemoryUsagePercent: memoryUsagePercent(config.AppConfig.MemoryLimitMB),
		GoVersion:          runtime.Version(),
		NumGoroutine:       runtime.NumGoroutine(),
		ServerTime:         FormatDateTime(time.Now()),
	}
}
