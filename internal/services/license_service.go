package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"license-server/internal/config"
	"license-server/internal/models"
	"license-server/pkg/logging"

	"gorm.io/gorm"
)

// Notifier sends one templated client notification. Implementations must
// not block license mutations on delivery failures.
type Notifier interface {
	Send(notificationType string, data NotificationData) bool
}

// NotificationData is the template data bag for outbound notifications
type NotificationData struct {
	ClientName    string
	ClientPhone   string
	LicenseKey    string
	ProductName   string
	Domain        string
	OldStatus     string
	NewStatus     string
	ExpiresAt     *time.Time
	DaysRemaining int
}

// Notification types
const (
	NotifyLicenseCreated   = "license_created"
	NotifyExpiringSoon     = "expiring_soon"
	NotifyStatusChanged    = "status_changed"
	NotifyLicenseExpired   = "license_expired"
	NotifyLicenseActivated = "license_activated"
)

// LicenseService provides license lifecycle operations
type LicenseService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewLicenseService creates a new license service
func NewLicenseService(db *gorm.DB, notifier Notifier) *LicenseService {
	return &LicenseService{db: db, notifier: notifier}
}

// GenerateLicenseKey produces a key of the form
// PREFIX-XXXX-XXXX-XXXX-XXXX-XXXX-XXXX-XXXX-XXXX from 16 bytes of
// cryptographic randomness. Uniqueness is backstopped by the unique index
// on license_key; a collision surfaces as a database error on insert.
func GenerateLicenseKey(prefix string) (string, error) {
	groups := make([]string, 8)
	for i := range groups {
		b := make([]byte, 2)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		groups[i] = strings.ToUpper(hex.EncodeToString(b))
	}
	return prefix + "-" + strings.Join(groups, "-"), nil
}

// LicenseRequest carries the admin-supplied fields for create and update.
// DurationDays is a string so the sentinel "custom" and absence can be told
// apart from real day counts.
type LicenseRequest struct {
	ClientName     string `json:"client_name"`
	ClientEmail    string `json:"client_email"`
	ClientPhone    string `json:"client_phone"`
	ProductName    string `json:"product_name"`
	Version        string `json:"version"`
	LicenseType    string `json:"license_type"`
	MaxDomains     int    `json:"max_domains"`
	Status         string `json:"status"` // update only
	Notes          string `json:"notes"`
	StartDate      string `json:"start_date"`
	DurationDays   string `json:"duration_days"`
	CustomDuration int    `json:"custom_duration"`
}

// LicenseResult is the uniform mutation outcome
type LicenseResult struct {
	Success    bool     `json:"success"`
	Error      string   `json:"error,omitempty"`
	LicenseKey string   `json:"license_key,omitempty"`
	StartDate  string   `json:"start_date,omitempty"`
	ExpiresAt  *string  `json:"expires_at"`
	Warnings   []string `json:"warnings,omitempty"`
}

func failure(msg string) LicenseResult {
	return LicenseResult{Success: false, Error: msg}
}

// resolveDuration maps the request's duration fields to a day count:
// absent/empty means permanent, a plain integer is taken as-is, the
// sentinel "custom" defers to CustomDuration.
func resolveDuration(durationDays string, custom int) *int {
	durationDays = strings.TrimSpace(durationDays)
	if durationDays == "" {
		return nil
	}
	if durationDays == "custom" {
		if custom > 0 {
			return &custom
		}
		return nil
	}
	if days, err := strconv.Atoi(durationDays); err == nil && days > 0 {
		return &days
	}
	return nil
}

func applyDefaults(req *LicenseRequest) {
	if req.ClientName == "" {
		req.ClientName = "N/A"
	}
	if req.ClientEmail == "" {
		req.ClientEmail = "N/A"
	}
	if req.ProductName == "" {
		req.ProductName = "Sistema de Licencias"
	}
	if req.Version == "" {
		req.Version = "1.0"
	}
	if req.LicenseType == "" {
		req.LicenseType = models.LicenseTypeSingle
	}
	if req.MaxDomains <= 0 {
		req.MaxDomains = 1
	}
}

// CreateLicense issues a new license: normalizes the start date, resolves
// the duration, computes the expiry and generates the key.
func (s *LicenseService) CreateLicense(req LicenseRequest) LicenseResult {
	applyDefaults(&req)

	startDate, parsed := NormalizeDate(req.StartDate)
	var warnings []string
	if req.StartDate != "" && !parsed {
		warnings = append(warnings, "unparseable start_date, using current time")
	}

	duration := resolveDuration(req.DurationDays, req.CustomDuration)
	var expiresAt *time.Time
	if duration != nil {
		t := startDate.AddDate(0, 0, *duration)
		expiresAt = &t
	}

	key, err := GenerateLicenseKey(config.AppConfig.LicenseKeyPrefix)
	if err != nil {
		return failure("failed to generate license key: " + err.Error())
	}

	license := models.License{
		LicenseKey:   key,
		ClientName:   req.ClientName,
		ClientEmail:  req.ClientEmail,
		ClientPhone:  req.ClientPhone,
		ProductName:  req.ProductName,
		Version:      req.Version,
		LicenseType:  req.LicenseType,
		MaxDomains:   req.MaxDomains,
		Status:       models.LicenseStatusActive,
		StartDate:    startDate,
		DurationDays: duration,
		ExpiresAt:    expiresAt,
		Notes:        req.Notes,
	}

	if err := s.db.Create(&license).Error; err != nil {
		return failure("database error: " + err.Error())
	}

	if req.ClientPhone != "" && s.notifier != nil {
		s.notifier.Send(NotifyLicenseCreated, NotificationData{
			ClientName:  req.ClientName,
			ClientPhone: req.ClientPhone,
			LicenseKey:  key,
			ProductName: req.ProductName,
			ExpiresAt:   expiresAt,
		})
	}

	var expiresStr *string
	if expiresAt != nil {
		v := FormatDateTime(*expiresAt)
		expiresStr = &v
	}
	return LicenseResult{
		Success:    true,
		LicenseKey: key,
		StartDate:  FormatDateTime(startDate),
		ExpiresAt:  expiresStr,
		Warnings:   warnings,
	}
}

// UpdateLicense applies the same date and duration resolution as create to
// an existing row, plus an explicit status.
func (s *LicenseService) UpdateLicense(id uint, req LicenseRequest) LicenseResult {
	if id == 0 {
		return failure("no license ID provided")
	}
	applyDefaults(&req)
	if req.Status == "" {
		req.Status = models.LicenseStatusActive
	}

	startDate, parsed := NormalizeDate(req.StartDate)
	var warnings []string
	if req.StartDate != "" && !parsed {
		warnings = append(warnings, "unparseable start_date, using current time")
	}

	duration := resolveDuration(req.DurationDays, req.CustomDuration)
	var expiresAt *time.Time
	if duration != nil {
		t := startDate.AddDate(0, 0, *duration)
		expiresAt = &t
	}

	updates := map[string]interface{}{
		"client_name":   req.ClientName,
		"client_email":  req.ClientEmail,
		"client_phone":  req.ClientPhone,
		"product_name":  req.ProductName,
		"version":       req.Version,
		"license_type":  req.LicenseType,
		"max_domains":   req.MaxDomains,
		"status":        req.Status,
		"notes":         req.Notes,
		"start_date":    startDate,
		"duration_days": duration,
		"expires_at":    expiresAt,
	}

	result := s.db.Model(&models.License{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return failure("database error: " + result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return failure("license not found")
	}

	var expiresStr *string
	if expiresAt != nil {
		v := FormatDateTime(*expiresAt)
		expiresStr = &v
	}
	return LicenseResult{Success: true, ExpiresAt: expiresStr, Warnings: warnings}
}

// DeleteLicense removes a license. Activations cascade through the foreign
// key; log rows keep their content with the reference nulled.
func (s *LicenseService) DeleteLicense(id uint) LicenseResult {
	if id == 0 {
		return failure("invalid license ID")
	}

	// SQLite does not always enforce the declared cascade, so activations
	// are removed explicitly before the license row.
	if err := s.db.Where("license_id = ?", id).Delete(&models.Activation{}).Error; err != nil {
		return failure("database error: " + err.Error())
	}

	result := s.db.Delete(&models.License{}, id)
	if result.Error != nil {
		return failure("database error: " + result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return failure("license not found")
	}
	return LicenseResult{Success: true}
}

// GetLicense fetches one license with derived fields filled
func (s *LicenseService) GetLicense(id uint) (*models.License, error) {
	var license models.License
	if err := s.db.First(&license, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("license not found")
		}
		return nil, err
	}

	now := time.Now()
	license.CalculatedStatus = license.EffectiveStatus(now)
	license.DaysRemaining = license.RemainingDays(now)
	s.db.Model(&models.Activation{}).
		Where("license_id = ? AND status = ?", license.ID, models.ActivationStatusActive).
		Count(&license.ActiveActivations)
	return &license, nil
}

// ChangeStatus updates the stored status and, when it actually changed and
// a phone is on file, sends exactly one status_changed notification.
func (s *LicenseService) ChangeStatus(id uint, newStatus string) error {
	if id == 0 {
		return fmt.Errorf("no license ID provided")
	}

	var prior models.License
	if err := s.db.First(&prior, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("license not found")
		}
		return err
	}

	if err := s.db.Model(&models.License{}).Where("id = ?", id).
		Update("status", newStatus).Error; err != nil {
		return err
	}

	if prior.Status != newStatus && prior.ClientPhone != "" && s.notifier != nil {
		s.notifier.Send(NotifyStatusChanged, NotificationData{
			ClientName:  prior.ClientName,
			ClientPhone: prior.ClientPhone,
			LicenseKey:  prior.LicenseKey,
			ProductName: prior.ProductName,
			OldStatus:   prior.Status,
			NewStatus:   newStatus,
			ExpiresAt:   prior.ExpiresAt,
		})
	}
	return nil
}

// ExtendLicense pushes the expiry forward by the given day count. Permanent
// licenses start counting from now.
func (s *LicenseService) ExtendLicense(id uint, days int) LicenseResult {
	if id == 0 || days <= 0 {
		return failure("invalid parameters")
	}

	var license models.License
	if err := s.db.First(&license, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return failure("license not found")
		}
		return failure("database error: " + err.Error())
	}

	base := time.Now()
	if license.ExpiresAt != nil {
		base = *license.ExpiresAt
	}
	newExpiry := base.AddDate(0, 0, days)

	if err := s.db.Model(&models.License{}).Where("id = ?", id).
		Update("expires_at", newExpiry).Error; err != nil {
		return failure("database error: " + err.Error())
	}

	v := FormatDateTime(newExpiry)
	return LicenseResult{Success: true, ExpiresAt: &v}
}

// ExpireAndNotify is the periodic sweep: licenses whose remaining days
// exactly equal the alert threshold get an expiring_soon notice; active
// licenses expiring today are flipped to expired (which cascades its own
// status_changed notice) and additionally get the explicit expired notice.
// Returns the number of notifications sent.
func (s *LicenseService) ExpireAndNotify() (int, error) {
	alertDays := config.AppConfig.ExpiryAlertDays
	now := time.Now()
	sent := 0

	var candidates []models.License
	err := s.db.Where("status = ? AND expires_at IS NOT NULL AND client_phone <> ''",
		models.LicenseStatusActive).Find(&candidates).Error
	if err != nil {
		return 0, err
	}

	for i := range candidates {
		l := &candidates[i]
		if !l.ExpiresAt.After(now) || l.RemainingDays(now) != alertDays {
			continue
		}
		if s.notifier != nil && s.notifier.Send(NotifyExpiringSoon, NotificationData{
			ClientName:    l.ClientName,
			ClientPhone:   l.ClientPhone,
			LicenseKey:    l.LicenseKey,
			ProductName:   l.ProductName,
			ExpiresAt:     l.ExpiresAt,
			DaysRemaining: l.RemainingDays(now),
		}) {
			sent++
		}
	}

	// Licenses whose expiry date falls on today's calendar day
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var expiring []models.License
	err = s.db.Where("status = ? AND expires_at >= ? AND expires_at < ? AND client_phone <> ''",
		models.LicenseStatusActive, dayStart, dayEnd).Find(&expiring).Error
	if err != nil {
		return sent, err
	}

	for i := range expiring {
		l := &expiring[i]
		if err := s.ChangeStatus(l.ID, models.LicenseStatusExpired); err != nil {
			logging.Errorf("Sweep: failed to expire license %d: %v", l.ID, err)
			continue
		}
		if s.notifier != nil {
			s.notifier.Send(NotifyLicenseExpired, NotificationData{
				ClientName:  l.ClientName,
				ClientPhone: l.ClientPhone,
				LicenseKey:  l.LicenseKey,
				ProductName: l.ProductName,
				ExpiresAt:   l.ExpiresAt,
			})
		}
		sent++
	}

	return sent, nil
}

// ClearOldLogs prunes event-log rows past the configured retention window
func (s *LicenseService) ClearOldLogs() (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -config.AppConfig.LogRetentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.LicenseLog{})
	return result.RowsAffected, result.Error
}

// AppendLog writes one event-log row
func (s *LicenseService) AppendLog(entry *models.LicenseLog) {
	if err := s.db.Create(entry).Error; err != nil {
		logging.Errorf("Failed to append license log: %v", err)
	}
}
