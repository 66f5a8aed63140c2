package models

import (
	"time"
)

// Log actions
const (
	LogActionActivation   = "activation"
	LogActionVerification = "verification"
	LogActionDeactivation = "deactivation"
	LogActionError        = "error"
)

// Log statuses
const (
	LogStatusSuccess = "success"
	LogStatusFailure = "failure"
	LogStatusWarning = "warning"
)

// LicenseLog is one appended audit entry. License and activation references
// are nullable so the row survives deletion of either (SET NULL, not
// CASCADE: the audit trail outlives the license).
type LicenseLog struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	LicenseID    *uint     `json:"license_id" gorm:"index"`
	ActivationID *uint     `json:"activation_id" gorm:"index"`
	Action       string    `json:"action" gorm:"not null;size:100;index"`
	Status       string    `json:"status" gorm:"not null;size:50"`
	Message      string    `json:"message" gorm:"not null;type:text"`
	IPAddress    string    `json:"ip_address" gorm:"size:45"`
	UserAgent    string    `json:"user_agent" gorm:"type:text"`
	RequestData  string    `json:"request_data" gorm:"type:text"` // JSON payload
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime;index"`

	License    *License    `json:"-" gorm:"foreignKey:LicenseID;constraint:OnDelete:SET NULL"`
	Activation *Activation `json:"-" gorm:"foreignKey:ActivationID;constraint:OnDelete:SET NULL"`

	// Joined fields for dashboard listings
	ClientName  string `json:"client_name,omitempty" gorm:"-"`
	ClientPhone string `json:"client_phone,omitempty" gorm:"-"`
	Domain      string `json:"domain,omitempty" gorm:"-"`
}

// WhatsAppLog is the append-only audit trail of outbound notifications.
// One row per attempt, success or failure.
type WhatsAppLog struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	Phone    string    `json:"phone" gorm:"not null;size:20"`
	Message  string    `json:"message" gorm:"not null;type:text"`
	Type     string    `json:"type" gorm:"size:100"`
	HTTPCode int       `json:"http_code"`
	Response string    `json:"response" gorm:"type:text"`
	SentAt   time.Time `json:"sent_at" gorm:"autoCreateTime"`
}
