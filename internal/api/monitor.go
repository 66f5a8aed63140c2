package api

import (
	"net/http"

	"license-server/internal/response"
	"license-server/internal/services"

	"github.com/gin-gonic/gin"
)

// GetMonitor runs the health checks and reports the snapshot, together
// with the caller's remaining rate-limit budget.
func GetMonitor(c *gin.Context) {
	health := healthService.CheckSystemHealth()
	response.SuccessJSON(c, gin.H{
		"health": health,
		"rate_limits": gin.H{
			"remaining": rateLimiter.Remaining(c.ClientIP(), "default"),
		},
	})
}

// GetAlerts lists alerts raised within the trailing hours
func GetAlerts(c *gin.Context) {
	alerts := healthService.RecentAlerts(queryInt(c, "hours", 24))
	response.SuccessJSON(c, gin.H{"alerts": alerts})
}

// GetSystemStats returns the resource usage snapshot
func GetSystemStats(c *gin.Context) {
	response.SuccessJSON(c, gin.H{"stats": services.GetSystemStats()})
}

// HealthCheck is the unauthenticated liveness endpoint
func HealthCheck(c *gin.Context) {
	health := healthService.CheckSystemHealth()
	code := http.StatusOK
	if health.Status == services.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  health.Status,
		"service": "license-server",
		"health":  health,
	})
}
