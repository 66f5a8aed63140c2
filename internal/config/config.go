package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Admin authentication
	JWTSecret       string
	TokenTTLMinutes int

	// WhatsApp (Whaticket) gateway configuration
	WhatsAppEnabled       bool
	WhatsAppEndpoint      string
	WhatsAppToken         string
	WhatsAppUserID        string
	WhatsAppQueueID       string
	WhatsAppSendSignature bool
	WhatsAppCloseTicket   bool
	WhatsAppTimeoutSec    int
	WhatsAppTemplateFile  string

	// Notification behaviour
	ExpiryAlertDays int
	CompanyName     string
	SupportPhone    string
	CountryCode     string

	// License issuance
	LicenseKeyPrefix string

	// Rate limiting
	RateLimitFile    string
	RateLimitBackend string // "file" or "redis"

	// Health monitoring
	LogFile             string
	AlertsFile          string
	ErrorRatePercent    float64
	DiskUsagePercent    float64
	MemoryUsagePercent  float64
	MemoryLimitMB       int
	HealthCheckInterval int // seconds, 0 disables the background loop

	// Log retention
	LogRetentionDays int

	// Sweep
	SweepIntervalMinutes int // 0 disables the background sweep
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:        getEnv("PORT", "8080"),
		Mode:        getEnv("GIN_MODE", "debug"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		JWTSecret:       getEnv("JWT_SECRET", "change-me"),
		TokenTTLMinutes: getEnvInt("TOKEN_TTL_MINUTES", 480),

		WhatsAppEnabled:       getEnvBool("WHATSAPP_ENABLED", false),
		WhatsAppEndpoint:      getEnv("WHATSAPP_ENDPOINT", ""),
		WhatsAppToken:         getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppUserID:        getEnv("WHATSAPP_USER_ID", ""),
		WhatsAppQueueID:       getEnv("WHATSAPP_QUEUE_ID", ""),
		WhatsAppSendSignature: getEnvBool("WHATSAPP_SEND_SIGNATURE", false),
		WhatsAppCloseTicket:   getEnvBool("WHATSAPP_CLOSE_TICKET", false),
		WhatsAppTimeoutSec:    getEnvInt("WHATSAPP_TIMEOUT_SECONDS", 30),
		WhatsAppTemplateFile:  getEnv("WHATSAPP_TEMPLATE_FILE", ""),

		ExpiryAlertDays: getEnvInt("EXPIRY_ALERT_DAYS", 3),
		CompanyName:     getEnv("COMPANY_NAME", "Sistema de Licencias"),
		SupportPhone:    getEnv("SUPPORT_PHONE", ""),
		CountryCode:     getEnv("PHONE_COUNTRY_CODE", "57"),

		LicenseKeyPrefix: getEnv("LICENSE_KEY_PREFIX", "LCSY"),

		RateLimitFile:    getEnv("RATE_LIMIT_FILE", "rate_limits.json"),
		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", "file"),

		LogFile:             getEnv("LOG_FILE", "license-server.log"),
		AlertsFile:          getEnv("ALERTS_FILE", "monitor_alerts.json"),
		ErrorRatePercent:    getEnvFloat("HEALTH_ERROR_RATE_PERCENT", 10),
		DiskUsagePercent:    getEnvFloat("HEALTH_DISK_USAGE_PERCENT", 90),
		MemoryUsagePercent:  getEnvFloat("HEALTH_MEMORY_USAGE_PERCENT", 80),
		MemoryLimitMB:       getEnvInt("HEALTH_MEMORY_LIMIT_MB", 512),
		HealthCheckInterval: getEnvInt("HEALTH_CHECK_INTERVAL_SECONDS", 60),

		LogRetentionDays: getEnvInt("LOG_RETENTION_DAYS", 90),

		SweepIntervalMinutes: getEnvInt("SWEEP_INTERVAL_MINUTES", 0),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
