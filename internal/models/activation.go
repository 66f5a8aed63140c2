package models

import (
	"time"
)

// Activation statuses
const (
	ActivationStatusActive   = "active"
	ActivationStatusInactive = "inactive"
	ActivationStatusBlocked  = "blocked"
)

// Activation binds one license to one domain. At most one row exists per
// (license, domain) pair; repeated checks from the same domain update the
// existing row instead of inserting.
type Activation struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	LicenseID uint `json:"license_id" gorm:"not null;uniqueIndex:idx_license_domain"`

	Domain      string    `json:"domain" gorm:"not null;size:255;uniqueIndex:idx_license_domain"`
	IPAddress   string    `json:"ip_address" gorm:"size:45"`
	Status      string    `json:"status" gorm:"size:20;default:'active'"`
	ActivatedAt time.Time `json:"activated_at" gorm:"autoCreateTime"`
	LastCheck   time.Time `json:"last_check"`
	CheckCount  int       `json:"check_count" gorm:"default:0"`
	UserAgent   string    `json:"user_agent" gorm:"type:text"`
	ServerInfo  string    `json:"server_info" gorm:"type:text"` // JSON blob from the client

	License *License `json:"-" gorm:"foreignKey:LicenseID;constraint:OnDelete:CASCADE"`

	// Joined fields for the admin listings
	LicenseKey  string `json:"license_key,omitempty" gorm:"-"`
	ClientName  string `json:"client_name,omitempty" gorm:"-"`
	ClientPhone string `json:"client_phone,omitempty" gorm:"-"`
}
