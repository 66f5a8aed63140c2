package api

import (
	"net/http"

	"license-server/internal/metrics"
	"license-server/internal/response"

	"github.com/gin-gonic/gin"
)

// GetLicenseStats returns the aggregate dashboard counters
func GetLicenseStats(c *gin.Context) {
	stats, err := licenseService.Stats()
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to get stats: "+err.Error())
		return
	}
	metrics.LicensesActive.Set(float64(stats.ActiveLicenses))
	response.SuccessJSON(c, gin.H{"stats": stats})
}

// GetVerificationStats returns the trailing-window verification counts
func GetVerificationStats(c *gin.Context) {
	stats, err := licenseService.VerificationStats()
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to get verification stats: "+err.Error())
		return
	}
	response.SuccessJSON(c, gin.H{"stats": stats})
}

// GetRecentVerifications lists verification log rows with client identity
func GetRecentVerifications(c *gin.Context) {
	verifications, err := licenseService.RecentVerifications(
		queryInt(c, "limit", 50), c.Query("status_filter"))
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to get verifications: "+err.Error())
		return
	}
	response.SuccessJSON(c, gin.H{"verifications": verifications})
}

// GetLiveActivity returns all activity from the trailing minutes
func GetLiveActivity(c *gin.Context) {
	activity, err := licenseService.LiveActivity(queryInt(c, "minutes", 5))
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to get activity: "+err.Error())
		return
	}
	response.SuccessJSON(c, gin.H{"activity": activity})
}

// GetActivations lists activations, optionally filtered by license_id
func GetActivations(c *gin.Context) {
	activations, err := licenseService.GetActivations(
		uint(queryInt(c, "license_id", 0)), queryInt(c, "limit", 100))
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to get activations: "+err.Error())
		return
	}
	response.SuccessJSON(c, gin.H{"activations": activations})
}

// GetLicenseActivations lists activations for one license
func GetLicenseActivations(c *gin.Context) {
	id := paramID(c)
	if id == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid license ID")
		return
	}
	activations, err := licenseService.GetActivations(id, queryInt(c, "limit", 50))
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to get activations: "+err.Error())
		return
	}
	response.SuccessJSON(c, gin.H{"activations": activations})
}

// GetActivationDetails returns one activation plus verification history
func GetActivationDetails(c *gin.Context) {
	id := paramID(c)
	if id == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid activation ID")
		return
	}

	details, err := licenseService.GetActivationDetails(id)
	if err != nil {
		response.ErrorJSON(c, http.StatusNotFound, "Activation not found")
		return
	}
	response.SuccessJSON(c, gin.H{"activation": details})
}

// ActivationStatusRequest carries the new activation status
type ActivationStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive blocked"`
}

// SetActivationStatus is the admin block/unblock action
func SetActivationStatus(c *gin.Context) {
	id := paramID(c)
	if id == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid activation ID")
		return
	}

	var req ActivationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	if err := activationService.SetActivationStatus(id, req.Status); err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "activation not found" {
			status = http.StatusNotFound
		}
		response.ErrorJSON(c, status, err.Error())
		return
	}
	response.SuccessJSON(c, nil)
}

// GetRecentLogs lists the newest event-log rows
func GetRecentLogs(c *gin.Context) {
	logs, err := licenseService.RecentLogs(queryInt(c, "limit", 20))
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to get logs: "+err.Error())
		return
	}
	response.SuccessJSON(c, gin.H{"logs": logs})
}

// ClearOldLogs prunes event-log rows past the retention window
func ClearOldLogs(c *gin.Context) {
	removed, err := licenseService.ClearOldLogs()
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to clear logs: "+err.Error())
		return
	}
	response.SuccessJSON(c, gin.H{"removed": removed})
}
