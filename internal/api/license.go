package api

import (
	"net/http"
	"strconv"

	"license-server/internal/response"
	"license-server/internal/services"

	"github.com/gin-gonic/gin"
)

func paramID(c *gin.Context) uint {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// ListLicenses returns the newest licenses with derived fields
func ListLicenses(c *gin.Context) {
	licenses, err := licenseService.ListLicenses(queryInt(c, "limit", 100))
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to list licenses: "+err.Error())
		return
	}
	response.SuccessJSON(c, gin.H{"licenses": licenses})
}

// CreateLicense issues a new license
func CreateLicense(c *gin.Context) {
	var req services.LicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	result := licenseService.CreateLicense(req)
	if !result.Success {
		response.ErrorJSON(c, http.StatusInternalServerError, result.Error)
		return
	}
	c.JSON(http.StatusCreated, response.Success(result))
}

// GetLicenseDetails returns one license by ID
func GetLicenseDetails(c *gin.Context) {
	id := paramID(c)
	if id == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid license ID")
		return
	}

	license, err := licenseService.GetLicense(id)
	if err != nil {
		response.ErrorJSON(c, http.StatusNotFound, "License not found")
		return
	}
	response.SuccessJSON(c, gin.H{"license": license})
}

// UpdateLicense applies admin edits to an existing license
func UpdateLicense(c *gin.Context) {
	id := paramID(c)
	if id == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "No license ID provided")
		return
	}

	var req services.LicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	result := licenseService.UpdateLicense(id, req)
	if !result.Success {
		status := http.StatusInternalServerError
		if result.Error == "license not found" {
			status = http.StatusNotFound
		}
		response.ErrorJSON(c, status, result.Error)
		return
	}
	response.SuccessJSON(c, result)
}

// DeleteLicense removes a license and its activations
func DeleteLicense(c *gin.Context) {
	id := paramID(c)
	if id == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid license ID")
		return
	}

	result := licenseService.DeleteLicense(id)
	if !result.Success {
		status := http.StatusInternalServerError
		if result.Error == "license not found" {
			status = http.StatusNotFound
		}
		response.ErrorJSON(c, status, result.Error)
		return
	}
	response.SuccessJSON(c, nil)
}

// ExtendLicenseRequest carries the day count for an extension
type ExtendLicenseRequest struct {
	Days int `json:"days" binding:"required"`
}

// ExtendLicense pushes the expiry forward
func ExtendLicense(c *gin.Context) {
	id := paramID(c)
	if id == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid license ID")
		return
	}

	var req ExtendLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	result := licenseService.ExtendLicense(id, req.Days)
	if !result.Success {
		status := http.StatusBadRequest
		if result.Error == "license not found" {
			status = http.StatusNotFound
		}
		response.ErrorJSON(c, status, result.Error)
		return
	}
	response.SuccessJSON(c, result)
}

// ChangeStatusRequest carries the new license status
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active suspended expired revoked"`
}

// ChangeLicenseStatus updates a license status, notifying on real changes
func ChangeLicenseStatus(c *gin.Context) {
	id := paramID(c)
	if id == 0 {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid license ID")
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	if err := licenseService.ChangeStatus(id, req.Status); err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "license not found" {
			status = http.StatusNotFound
		}
		response.ErrorJSON(c, status, err.Error())
		return
	}
	response.SuccessJSON(c, nil)
}

// GetExpiringLicenses lists active licenses inside the day window
func GetExpiringLicenses(c *gin.Context) {
	licenses, err := licenseService.ExpiringLicenses(queryInt(c, "days", 30))
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to list expiring licenses: "+err.Error())
		return
	}
	response.SuccessJSON(c, gin.H{"licenses": licenses})
}

// RunSweep triggers the expiry sweep, normally driven by cron
func RunSweep(c *gin.Context) {
	sent, err := licenseService.ExpireAndNotify()
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Sweep failed: "+err.Error())
		return
	}
	response.SuccessJSON(c, gin.H{"notifications_sent": sent})
}
