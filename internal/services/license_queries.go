package services

import (
	"time"

	"license-server/internal/models"

	"gorm.io/gorm"
)

// verificationActions are the log actions counted as verification traffic
var verificationActions = []string{"verification", "validation"}

// ListLicenses returns the newest licenses with calculated_status,
// days_remaining and active activation counts filled in.
func (s *LicenseService) ListLicenses(limit int) ([]models.License, error) {
	if limit <= 0 {
		limit = 100
	}

	var licenses []models.License
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&licenses).Error; err != nil {
		return nil, err
	}

	// One grouped count instead of a subquery per row
	type pair struct {
		LicenseID uint
		N         int64
	}
	var counts []pair
	s.db.Model(&models.Activation{}).
		Select("license_id, COUNT(*) as n").
		Where("status = ?", models.ActivationStatusActive).
		Group("license_id").
		Scan(&counts)
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.LicenseID] = c.N
	}

	now := time.Now()
	for i := range licenses {
		licenses[i].CalculatedStatus = licenses[i].EffectiveStatus(now)
		licenses[i].DaysRemaining = licenses[i].RemainingDays(now)
		licenses[i].ActiveActivations = byID[licenses[i].ID]
	}
	return licenses, nil
}

// ExpiringLicenses returns active licenses expiring within the day window
func (s *LicenseService) ExpiringLicenses(days int) ([]models.License, error) {
	if days <= 0 {
		days = 30
	}
	now := time.Now()
	until := now.AddDate(0, 0, days)

	var licenses []models.License
	err := s.db.Where("status = ? AND expires_at IS NOT NULL AND expires_at BETWEEN ? AND ?",
		models.LicenseStatusActive, now, until).
		Order("expires_at ASC").
		Find(&licenses).Error
	if err != nil {
		return nil, err
	}
	for i := range licenses {
		licenses[i].CalculatedStatus = licenses[i].EffectiveStatus(now)
		licenses[i].DaysRemaining = licenses[i].RemainingDays(now)
	}
	return licenses, nil
}

// Stats computes the aggregate counters the dashboard header shows
func (s *LicenseService) Stats() (*models.LicenseStats, error) {
	var stats models.LicenseStats
	now := time.Now()
	soon := now.AddDate(0, 0, 30)

	lic := func() *gorm.DB { return s.db.Model(&models.License{}) }
	if err := lic().Count(&stats.TotalLicenses).Error; err != nil {
		return nil, err
	}
	lic().Where("status = ?", models.LicenseStatusActive).Count(&stats.ActiveLicenses)
	lic().Where("status = ?", models.LicenseStatusExpired).Count(&stats.ExpiredLicenses)
	lic().Where("status = ?", models.LicenseStatusSuspended).Count(&stats.SuspendedLicenses)
	lic().Where("expires_at IS NOT NULL AND expires_at < ?", now).Count(&stats.ExpiredCount)
	lic().Where("expires_at IS NOT NULL AND expires_at BETWEEN ? AND ?", now, soon).Count(&stats.ExpiringSoon)
	lic().Where("client_phone <> ''").Count(&stats.LicensesWithPhone)
	lic().Where("duration_days IS NOT NULL").Count(&stats.TimeLimitedCount)
	lic().Where("duration_days IS NULL").Count(&stats.PermanentCount)

	s.db.Model(&models.Activation{}).Count(&stats.TotalActivations)
	s.db.Model(&models.Activation{}).
		Where("status = ?", models.ActivationStatusActive).
		Distinct("domain").Count(&stats.UniqueDomains)

	return &stats, nil
}

// RecentLogs returns the newest event-log rows with client identity joined
func (s *LicenseService) RecentLogs(limit int) ([]models.LicenseLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []models.LicenseLog
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	s.joinClientIdentity(logs)
	return logs, nil
}

// GetActivations lists activations, optionally filtered by license
func (s *LicenseService) GetActivations(licenseID uint, limit int) ([]models.Activation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.db.Order("activated_at DESC").Limit(limit)
	if licenseID > 0 {
		query = query.Where("license_id = ?", licenseID)
	}

	var activations []models.Activation
	if err := query.Find(&activations).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(activations))
	for _, a := range activations {
		ids = append(ids, a.LicenseID)
	}
	var licenses []models.License
	if len(ids) > 0 {
		s.db.Where("id IN ?", ids).Find(&licenses)
	}
	byID := make(map[uint]models.License, len(licenses))
	for _, l := range licenses {
		byID[l.ID] = l
	}
	for i := range activations {
		if l, ok := byID[activations[i].LicenseID]; ok {
			activations[i].LicenseKey = l.LicenseKey
			activations[i].ClientName = l.ClientName
			activations[i].ClientPhone = l.ClientPhone
		}
	}
	return activations, nil
}

// ActivationDetails is one activation joined with its license and the last
// verification attempts against it.
type ActivationDetails struct {
	models.Activation
	ProductName         string              `json:"product_name"`
	Version             string              `json:"version"`
	ExpiresAt           *time.Time          `json:"expires_at"`
	VerificationHistory []models.LicenseLog `json:"verification_history"`
}

// GetActivationDetails fetches one activation with context for the panel
func (s *LicenseService) GetActivationDetails(id uint) (*ActivationDetails, error) {
	if id == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var activation models.Activation
	if err := s.db.First(&activation, id).Error; err != nil {
		return nil, err
	}

	var license models.License
	if err := s.db.First(&license, activation.LicenseID).Error; err != nil {
		return nil, err
	}

	details := &ActivationDetails{
		Activation:  activation,
		ProductName: license.ProductName,
		Version:     license.Version,
		ExpiresAt:   license.ExpiresAt,
	}
	details.LicenseKey = license.LicenseKey
	details.ClientName = license.ClientName

	s.db.Where("activation_id = ?", id).
		Order("created_at DESC").Limit(10).
		Find(&details.VerificationHistory)

	return details, nil
}

// VerificationStats aggregates verification counts over trailing windows
func (s *LicenseService) VerificationStats() (*models.VerificationStats, error) {
	var stats models.VerificationStats
	now := time.Now()

	base := func() *gorm.DB {
		return s.db.Model(&models.LicenseLog{}).Where("action IN ?", verificationActions)
	}
	if err := base().Count(&stats.TotalVerifications).Error; err != nil {
		return nil, err
	}
	base().Where("created_at >= ?", now.Add(-time.Hour)).Count(&stats.Verifications1h)
	base().Where("created_at >= ?", now.Add(-24*time.Hour)).Count(&stats.Verifications24h)
	base().Where("created_at >= ?", now.Add(-7*24*time.Hour)).Count(&stats.Verifications7d)

	return &stats, nil
}

// RecentVerifications lists verification log rows, optionally filtered by
// outcome status.
func (s *LicenseService) RecentVerifications(limit int, statusFilter string) ([]models.LicenseLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.db.Where("action IN ?", verificationActions)
	if statusFilter != "" {
		query = query.Where("status = ?", statusFilter)
	}

	var logs []models.LicenseLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	s.joinClientIdentity(logs)
	return logs, nil
}

// LiveActivity returns all log rows from the trailing minute window
func (s *LicenseService) LiveActivity(minutes int) ([]models.LicenseLog, error) {
	if minutes <= 0 {
		minutes = 5
	}
	cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)

	var logs []models.LicenseLog
	err := s.db.Where("created_at >= ?", cutoff).
		Order("created_at DESC").Limit(20).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	s.joinClientIdentity(logs)
	return logs, nil
}

// joinClientIdentity fills the display-only client and domain fields on a
// batch of log rows.
func (s *LicenseService) joinClientIdentity(logs []models.LicenseLog) {
	licenseIDs := make([]uint, 0, len(logs))
	activationIDs := make([]uint, 0, len(logs))
	for _, l := range logs {
		if l.LicenseID != nil {
			licenseIDs = append(licenseIDs, *l.LicenseID)
		}
		if l.ActivationID != nil {
			activationIDs = append(activationIDs, *l.ActivationID)
		}
	}

	licByID := make(map[uint]models.License)
	if len(licenseIDs) > 0 {
		var licenses []models.License
		s.db.Where("id IN ?", licenseIDs).Find(&licenses)
		for _, l := range licenses {
			licByID[l.ID] = l
		}
	}
	actByID := make(map[uint]models.Activation)
	if len(activationIDs) > 0 {
		var activations []models.Activation
		s.db.Where("id IN ?", activationIDs).Find(&activations)
		for _, a := range activations {
			actByID[a.ID] = a
		}
	}

	for i := range logs {
		if logs[i].LicenseID != nil {
			if l, ok := licByID[*logs[i].LicenseID]; ok {
				logs[i].ClientName = l.ClientName
				logs[i].ClientPhone = l.ClientPhone
			}
		}
		if logs[i].ActivationID != nil {
			if a, ok := actByID[*logs[i].ActivationID]; ok {
				logs[i].Domain = a.Domain
			}
		}
	}
}
