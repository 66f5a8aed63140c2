package models

import (
	"time"
)

// Admin is a panel account. Password holds a bcrypt hash.
type Admin struct {
	BaseModel

	Username  string     `json:"username" gorm:"uniqueIndex;not null;size:255"`
	Password  string     `json:"-" gorm:"not null;size:255"`
	Role      string     `json:"role" gorm:"size:20;default:'admin'"`
	Enabled   bool       `json:"enabled" gorm:"default:true"`
	LastLogin *time.Time `json:"last_login"`
}

// LicenseStats mirrors the aggregate dashboard view over the licenses table
type LicenseStats struct {
	TotalLicenses     int64 `json:"total_licenses"`
	ActiveLicenses    int64 `json:"active_licenses"`
	ExpiredLicenses   int64 `json:"expired_licenses"`
	SuspendedLicenses int64 `json:"suspended_licenses"`
	TotalActivations  int64 `json:"total_activations"`
	UniqueDomains     int64 `json:"unique_domains"`
	ExpiredCount      int64 `json:"expired_count"`
	ExpiringSoon      int64 `json:"expiring_soon"`
	LicensesWithPhone int64 `json:"licenses_with_phone"`
	TimeLimitedCount  int64 `json:"time_limited_licenses"`
	PermanentCount    int64 `json:"permanent_licenses"`
}

// VerificationStats holds verification counts bucketed by trailing window
type VerificationStats struct {
	TotalVerifications int64 `json:"total_verifications"`
	Verifications1h    int64 `json:"verifications_1h"`
	Verifications24h   int64 `json:"verifications_24h"`
	Verifications7d    int64 `json:"verifications_7d"`
}
