package models

import (
	"time"
)

// License statuses. "revoked" is terminal: a revoked license is never
// re-reported as expired no matter what its expiry date says.
const (
	LicenseStatusActive    = "active"
	LicenseStatusSuspended = "suspended"
	LicenseStatusExpired   = "expired"
	LicenseStatusRevoked   = "revoked"
)

// License types
const (
	LicenseTypeSingle    = "single"
	LicenseTypeMultiple  = "multiple"
	LicenseTypeUnlimited = "unlimited"
)

// License represents one issued license grant
type License struct {
	BaseModel

	LicenseKey  string `json:"license_key" gorm:"uniqueIndex;not null;size:255"`
	ClientName  string `json:"client_name" gorm:"not null;size:255"`
	ClientEmail string `json:"client_email" gorm:"not null;size:255"`
	ClientPhone string `json:"client_phone" gorm:"size:20"`
	ProductName string `json:"product_name" gorm:"not null;size:255"`
	Version     string `json:"version" gorm:"size:50;default:'1.0'"`
	LicenseType string `json:"license_type" gorm:"size:20;default:'single'"`
	MaxDomains  int    `json:"max_domains" gorm:"default:1"`
	Status      string `json:"status" gorm:"size:20;default:'active';index"`

	StartDate    time.Time  `json:"start_date"`
	DurationDays *int       `json:"duration_days"`           // nil means permanent
	ExpiresAt    *time.Time `json:"expires_at" gorm:"index"` // nil means permanent

	Notes string `json:"notes" gorm:"type:text"`

	// Derived fields, filled by the query layer, never persisted
	CalculatedStatus  string `json:"calculated_status,omitempty" gorm:"-"`
	DaysRemaining     int    `json:"days_remaining" gorm:"-"`
	ActiveActivations int64  `json:"active_activations" gorm:"-"`
}

// IsPermanent reports whether the license has no expiry
func (l *License) IsPermanent() bool {
	return l.ExpiresAt == nil
}

// EffectiveStatus returns the stored status, forced to "expired" when the
// expiry date has passed and the stored status is not already terminal.
func (l *License) EffectiveStatus(now time.Time) string {
	if l.Status == LicenseStatusRevoked {
		return l.Status
	}
	if l.ExpiresAt != nil && l.ExpiresAt.Before(now) {
		return LicenseStatusExpired
	}
	return l.Status
}

// RemainingDays returns whole days until expiry, 0 when already expired or
// when the license is permanent.
func (l *License) RemainingDays(now time.Time) int {
	if l.ExpiresAt == nil || !l.ExpiresAt.After(now) {
		return 0
	}
	return int(l.ExpiresAt.Sub(now).Hours() / 24)
}
