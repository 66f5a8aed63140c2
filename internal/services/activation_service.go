package services

import (
	"encoding/json"
	"fmt"
	"time"

	"license-server/internal/models"

	"gorm.io/gorm"
)

// ActivationService handles the public verify and activate operations:
// binding licenses to domains and recording every attempt in the event log.
type ActivationService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewActivationService creates a new activation service
func NewActivationService(db *gorm.DB, notifier Notifier) *ActivationService {
	return &ActivationService{db: db, notifier: notifier}
}

// VerifyRequest is one client-side check of a license on a domain
type VerifyRequest struct {
	LicenseKey string `json:"license_key" binding:"required"`
	Domain     string `json:"domain" binding:"required"`
	IPAddress  string `json:"-"`
	UserAgent  string `json:"-"`
	ServerInfo string `json:"server_info"`
}

// VerifyResult is the outcome reported back to the client
type VerifyResult struct {
	Success       bool       `json:"success"`
	Error         string     `json:"error,omitempty"`
	Status        string     `json:"status,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	DaysRemaining int        `json:"days_remaining"`
}

// Verify checks a license key against a domain. The first successful check
// from a new domain creates the activation; subsequent checks bump the
// counter and last-check timestamp.
func (s *ActivationService) Verify(req VerifyRequest) VerifyResult {
	return s.check(req, models.LogActionVerification)
}

// Activate explicitly binds a license to a domain. Re-enabling a
// previously deactivated domain sends the reactivation notice.
func (s *ActivationService) Activate(req VerifyRequest) VerifyResult {
	return s.check(req, models.LogActionActivation)
}

func (s *ActivationService) check(req VerifyRequest, action string) VerifyResult {
	now := time.Now()

	var license models.License
	if err := s.db.Where("license_key = ?", req.LicenseKey).First(&license).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			s.log(nil, nil, action, models.LogStatusFailure, "license key not found", req)
			return VerifyResult{Success: false, Error: "license not found"}
		}
		s.log(nil, nil, models.LogActionError, models.LogStatusFailure, "database error: "+err.Error(), req)
		return VerifyResult{Success: false, Error: "internal error"}
	}

	status := license.EffectiveStatus(now)
	if status != models.LicenseStatusActive {
		s.log(&license.ID, nil, action, models.LogStatusFailure,
			fmt.Sprintf("license is %s", status), req)
		return VerifyResult{Success: false, Error: "license is " + status, Status: status}
	}

	var activation models.Activation
	err := s.db.Where("license_id = ? AND domain = ?", license.ID, req.Domain).
		First(&activation).Error

	switch {
	case err == gorm.ErrRecordNotFound:
		if !s.domainAllowed(&license) {
			s.log(&license.ID, nil, action, models.LogStatusFailure,
				"domain limit reached for license type "+license.LicenseType, req)
			return VerifyResult{Success: false, Error: "maximum number of domains reached"}
		}
		activation = models.Activation{
			LicenseID:  license.ID,
			Domain:     req.Domain,
			IPAddress:  req.IPAddress,
			Status:     models.ActivationStatusActive,
			LastCheck:  now,
			CheckCount: 1,
			UserAgent:  req.UserAgent,
			ServerInfo: req.ServerInfo,
		}
		if err := s.db.Create(&activation).Error; err != nil {
			s.log(&license.ID, nil, models.LogActionError, models.LogStatusFailure,
				"failed to create activation: "+err.Error(), req)
			return VerifyResult{Success: false, Error: "internal error"}
		}
		s.log(&license.ID, &activation.ID, models.LogActionActivation, models.LogStatusSuccess,
			"domain activated: "+req.Domain, req)

	case err != nil:
		s.log(&license.ID, nil, models.LogActionError, models.LogStatusFailure,
			"database error: "+err.Error(), req)
		return VerifyResult{Success: false, Error: "internal error"}

	default:
		if activation.Status == models.ActivationStatusBlocked {
			s.log(&license.ID, &activation.ID, action, models.LogStatusFailure,
				"activation is blocked for domain "+req.Domain, req)
			return VerifyResult{Success: false, Error: "domain is blocked"}
		}

		reactivated := activation.Status == models.ActivationStatusInactive && action == models.LogActionActivation
		updates := map[string]interface{}{
			"last_check":  now,
			"check_count": gorm.Expr("check_count + 1"),
			"ip_address":  req.IPAddress,
		}
		if reactivated {
			updates["status"] = models.ActivationStatusActive
		}
		if err := s.db.Model(&models.Activation{}).Where("id = ?", activation.ID).
			Updates(updates).Error; err != nil {
			s.log(&license.ID, &activation.ID, models.LogActionError, models.LogStatusFailure,
				"failed to update activation: "+err.Error(), req)
			return VerifyResult{Success: false, Error: "internal error"}
		}

		s.log(&license.ID, &activation.ID, action, models.LogStatusSuccess,
			"verification passed for domain "+req.Domain, req)

		if reactivated && license.ClientPhone != "" && s.notifier != nil {
			s.notifier.Send(NotifyLicenseActivated, NotificationData{
				ClientName:  license.ClientName,
				ClientPhone: license.ClientPhone,
				LicenseKey:  license.LicenseKey,
				ProductName: license.ProductName,
				Domain:      req.Domain,
				ExpiresAt:   license.ExpiresAt,
			})
		}
	}

	return VerifyResult{
		Success:       true,
		Status:        status,
		ExpiresAt:     license.ExpiresAt,
		DaysRemaining: license.RemainingDays(now),
	}
}

// domainAllowed checks the license-type domain capacity before binding a
// new domain.
func (s *ActivationService) domainAllowed(license *models.License) bool {
	if license.LicenseType == models.LicenseTypeUnlimited {
		return true
	}
	limit := license.MaxDomains
	if license.LicenseType == models.LicenseTypeSingle {
		limit = 1
	}

	var count int64
	s.db.Model(&models.Activation{}).
		Where("license_id = ? AND status <> ?", license.ID, models.ActivationStatusInactive).
		Count(&count)
	return count < int64(limit)
}

// SetActivationStatus is the admin block/unblock operation
func (s *ActivationService) SetActivationStatus(id uint, status string) error {
	if id == 0 {
		return fmt.Errorf("invalid activation ID")
	}
	result := s.db.Model(&models.Activation{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("activation not found")
	}

	var activation models.Activation
	if err := s.db.First(&activation, id).Error; err == nil {
		action := models.LogActionDeactivation
		if status == models.ActivationStatusActive {
			action = models.LogActionActivation
		}
		s.log(&activation.LicenseID, &activation.ID, action, models.LogStatusSuccess,
			"activation status set to "+status, VerifyRequest{Domain: activation.Domain})
	}
	return nil
}

// log appends one event-log row for the attempt
func (s *ActivationService) log(licenseID, activationID *uint, action, status, message string, req VerifyRequest) {
	payload, _ := json.Marshal(map[string]string{
		"license_key": req.LicenseKey,
		"domain":      req.Domain,
	})
	entry := models.LicenseLog{
		LicenseID:    licenseID,
		ActivationID: activationID,
		Action:       action,
		Status:       status,
		Message:      message,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
		RequestData:  string(payload),
	}
	s.db.Create(&entry)
}
