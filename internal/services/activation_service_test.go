package services

import (
	"testing"
	"time"

	"license-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedLicense(t *testing.T, db *gorm.DB, key, licenseType string, maxDomains int, expiresAt *time.Time) *models.License {
	t.Helper()
	license := models.License{
		LicenseKey:  key,
		ClientName:  "Acme",
		ClientPhone: "3001234567",
		ProductName: "Test Product",
		LicenseType: licenseType,
		MaxDomains:  maxDomains,
		Status:      models.LicenseStatusActive,
		StartDate:   time.Now().AddDate(0, 0, -10),
		ExpiresAt:   expiresAt,
	}
	require.NoError(t, db.Create(&license).Error)
	return &license
}

func TestVerifyUnknownKey(t *testing.T) {
	setupConfig(t)
	db := setupTestDB(t)
	svc := NewActivationService(db, nil)

	result := svc.Verify(VerifyRequest{LicenseKey: "LCSY-NOPE-0000", Domain: "example.com"})
	assert.False(t, result.Success)
	assert.Equal(t, "license not found", result.Error)

	var log models.LicenseLog
	require.NoError(t, db.First(&log).Error)
	assert.Equal(t, models.LogStatusFailure, log.Status)
	assert.Nil(t, log.LicenseID)
}

func TestVerifyCreatesAndUpdatesActivation(t *testing.T) {
	setupConfig(t)
	db := setupTestDB(t)
	svc := NewActivationService(db, nil)
	license := seedLicense(t, db, "LCSY-TEST-0001", models.LicenseTypeSingle, 1, nil)

	req := VerifyRequest{
		LicenseKey: license.LicenseKey,
		Domain:     "example.com",
		IPAddress:  "10.0.0.1",
		UserAgent:  "test-agent",
	}

	result := svc.Verify(req)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, models.LicenseStatusActive, result.Status)

	var activation models.Activation
	require.NoError(t, db.Where("license_id = ?", license.ID).First(&activation).Error)
	assert.Equal(t, "example.com", activation.Domain)
	assert.Equal(t, 1, activation.CheckCount)
	assert.Equal(t, models.ActivationStatusActive, activation.Status)

	// Second check from the same domain bumps the counter instead of
	// creating a new row
	result = svc.Verify(req)
	require.True(t, result.Success, result.Error)

	var count int64
	db.Model(&models.Activation{}).Where("license_id = ?", license.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	require.NoError(t, db.First(&activation, activation.ID).Error)
	assert.Equal(t, 2, activation.CheckCount)
}

func TestVerifyReportsDaysRemaining(t *testing.T) {
	setupConfig(t)
	db := setupTestDB(t)
	svc := NewActivationService(db, nil)

	expires := time.Now().Add(10*24*time.Hour + time.Hour)
	license := seedLicense(t, db, "LCSY-TEST-0002", models.LicenseTypeSingle, 1, &expires)

	result := svc.Verify(VerifyRequest{LicenseKey: license.LicenseKey, Domain: "example.com"})
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 10, result.DaysRemaining)
	require.NotNil(t, result.ExpiresAt)
}

func TestSingleLicenseRejectsSecondDomain(t *testing.T) {
	setupConfig(t)
	db := setupTestDB(t)
	svc := NewActivationService(db, nil)
	license := seedLicense(t, db, "LCSY-TEST-0003", models.LicenseTypeSingle, 1, nil)

	first := svc.Verify(VerifyRequest{LicenseKey: license.LicenseKey, Domain: "one.example.com"})
	require.True(t, first.Success, first.Error)

	second := svc.Verify(VerifyRequest{LicenseKey: license.LicenseKey, Domain: "two.example.com"})
	assert.False(t, second.Success)
	assert.Equal(t, "maximum number of domains reached", second.Error)
}

func TestMultipleLicenseHonorsMaxDomains(t *testing.T) {
	setupConfig(t)
	db := setupTestDB(t)
	svc := NewActivationService(db, nil)
	license := seedLicense(t, db, "LCSY-TEST-0004", models.LicenseTypeMultiple, 2, nil)

	for _, domain := range []string{"one.example.com", "two.example.com"} {
		result := svc.Verify(VerifyRequest{LicenseKey: license.LicenseKey, Domain: domain})
		require.True(t, result.Success, result.Error)
	}

	third := svc.Verify(VerifyRequest{LicenseKey: license.LicenseKey, Domain: "three.example.com"})
	assert.False(t, third.Success)
}

func TestUnlimitedLicenseIgnoresDomainCount(t *testing.T) {
	setupConfig(t)
	db := setupTestDB(t)
	svc := NewActivationService(db, nil)
	license := seedLicense(t, db, "LCSY-TEST-0005", models.LicenseTypeUnlimited, 1, nil)

	for _, domain := range []string{"a.example.com", "b.example.com", "c.example.com", "d.example.com"} {
		result := svc.Verify(VerifyRequest{LicenseKey: license.LicenseKey, Domain: domain})
		require.True(t, result.Success, result.Error)
	}
}

func TestVerifyRejectsNonActiveLicense(t *testing.T) {
	setupConfig(t)
	db := setupTestDB(t)
	svc := NewActivationService(db, nil)

	suspended := seedLicense(t, db, "LCSY-TEST-0006", models.LicenseTypeSingle, 1, nil)
	require.NoError(t, db.Model(suspended).Update("status", models.LicenseStatusSuspended).Error)

	result := svc.Verify(VerifyRequest{LicenseKey: suspended.LicenseKey, Domain: "example.com"})
	assert.False(t, result.Success)
	assert.Equal(t, models.LicenseStatusSuspended, result.Status)

	// Stored status active, expiry in the past: the derived status governs
	past := time.Now().AddDate(0, 0, -1)
	expired := seedLicense(t, db, "LCSY-TEST-0007", models.LicenseTypeSingle, 1, &past)

	result = svc.Verify(VerifyRequest{LicenseKey: expired.LicenseKey, Domain: "example.com"})
	assert.False(t, result.Success)
	assert.Equal(t, models.LicenseStatusExpired, result.Status)
}

func TestBlockedDomainRejected(t *testing.T) {
	setupConfig(t)
	db := setupTestDB(t)
	svc := NewActivationService(db, nil)
	license := seedLicense(t, db, "LCSY-TEST-0008", models.LicenseTypeSingle, 1, nil)

	result := svc.Verify(VerifyRequest{LicenseKey: license.LicenseKey, Domain: "example.com"})
	require.True(t, result.Success, result.Error)

	var activation models.Activation
	require.NoError(t, db.Where("license_id = ?", license.ID).First(&activation).Error)
	require.NoError(t, svc.SetActivationStatus(activation.ID, models.ActivationStatusBlocked))

	result = svc.Verify(VerifyRequest{LicenseKey: license.LicenseKey, Domain: "example.com"})
	assert.False(t, result.Success)
	assert.Equal(t, "domain is blocked", result.Error)
}

func TestActivateReactivatesInactiveDomain(t *testing.T) {
	setupConfig(t)
	notifier := &recordingNotifier{}
	db := setupTestDB(t)
	svc := NewActivationService(db, notifier)
	license := seedLicense(t, db, "LCSY-TEST-0009", models.LicenseTypeSingle, 1, nil)

	result := svc.Activate(VerifyRequest{LicenseKey: license.LicenseKey, Domain: "example.com"})
	require.True(t, result.Success, result.Error)
	notifier.sends = nil

	var activation models.Activation
	require.NoError(t, db.Where("license_id = ?", license.ID).First(&activation).Error)
	require.NoError(t, db.Model(&activation).Update("status", models.ActivationStatusInactive).Error)

	result = svc.Activate(VerifyRequest{LicenseKey: license.LicenseKey, Domain: "example.com"})
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 1, notifier.count(NotifyLicenseActivated))

	require.NoError(t, db.First(&activation, activation.ID).Error)
	assert.Equal(t, models.ActivationStatusActive, activation.Status)
}

func TestVerifyDoesNotReactivate(t *testing.T) {
	setupConfig(t)
	notifier := &recordingNotifier{}
	db := setupTestDB(t)
	svc := NewActivationService(db, notifier)
	license := seedLicense(t, db, "LCSY-TEST-0010", models.LicenseTypeSingle, 1, nil)

	result := svc.Verify(VerifyRequest{LicenseKey: license.LicenseKey, Domain: "example.com"})
	require.True(t, result.Success, result.Error)
	notifier.sends = nil

	var activation models.Activation
	require.NoError(t, db.Where("license_id = ?", license.ID).First(&activation).Error)
	require.NoError(t, db.Model(&activation).Update("status", models.ActivationStatusInactive).Error)

	result = svc.Verify(VerifyRequest{LicenseKey: license.LicenseKey, Domain: "example.com"})
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 0, notifier.total())

	require.NoError(t, db.First(&activation, activation.ID).Error)
	assert.Equal(t, models.ActivationStatusInactive, activation.Status)
}

func TestSetActivationStatus(t *testing.T) {
	setupConfig(t)
	db := setupTestDB(t)
	svc := NewActivationService(db, nil)

	require.Error(t, svc.SetActivationStatus(0, models.ActivationStatusBlocked))
	require.Error(t, svc.SetActivationStatus(9999, models.ActivationStatusBlocked))
}
