package api

import (
	"net/http"

	"license-server/internal/metrics"
	"license-server/internal/response"
	"license-server/internal/services"

	"github.com/gin-gonic/gin"
)

func bindVerifyRequest(c *gin.Context) (services.VerifyRequest, bool) {
	var req services.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return req, false
	}
	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")
	return req, true
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// VerifyLicense is the public endpoint clients poll to validate a license
// against their domain.
func VerifyLicense(c *gin.Context) {
	req, ok := bindVerifyRequest(c)
	if !ok {
		return
	}

	result := activationService.Verify(req)
	metrics.VerificationAttempts.WithLabelValues("verify", outcomeLabel(result.Success)).Inc()

	if !result.Success {
		c.JSON(http.StatusForbidden, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ActivateLicense is the public endpoint for explicitly binding a license
// to a domain.
func ActivateLicense(c *gin.Context) {
	req, ok := bindVerifyRequest(c)
	if !ok {
		return
	}

	result := activationService.Activate(req)
	metrics.VerificationAttempts.WithLabelValues("activate", outcomeLabel(result.Success)).Inc()

	if !result.Success {
		c.JSON(http.StatusForbidden, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
