package api

import (
	"license-server/internal/config"
	"license-server/internal/database"
	"license-server/internal/metrics"
	"license-server/internal/middleware"
	"license-server/internal/services"
	"license-server/pkg/logging"

	"github.com/gin-gonic/gin"
)

var (
	licenseService    *services.LicenseService
	activationService *services.ActivationService
	healthService     *services.HealthService
	rateLimiter       *services.RateLimiter
	notifier          services.Notifier
)

// InitServices wires the service layer against the shared database handle
func InitServices() *services.HealthService {
	db := database.GetDB()

	notifier = services.NewWhatsAppService(db)
	licenseService = services.NewLicenseService(db, notifier)
	activationService = services.NewActivationService(db, notifier)
	healthService = services.NewHealthService(db)

	var store services.CounterStore
	if config.AppConfig.RateLimitBackend == "redis" && database.GetRedis() != nil {
		store = services.NewRedisCounterStore(database.GetRedis())
		logging.Infof("Rate limiting backed by Redis")
	} else {
		store = services.NewFileCounterStore(config.AppConfig.RateLimitFile)
		logging.Infof("Rate limiting backed by file %s", config.AppConfig.RateLimitFile)
	}
	rateLimiter = services.NewRateLimiter(store)

	return healthService
}

// Sweep runs the expiry sweep outside any HTTP request, for the optional
// in-process loop.
func Sweep() (int, error) {
	return licenseService.ExpireAndNotify()
}

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine) {
	r.Use(middleware.RequestIDMiddleware())

	api := r.Group("/api")
	{
		// Public verification API, rate limited per action
		api.POST("/verify", middleware.RateLimitMiddleware(rateLimiter, "verify"), VerifyLicense)
		api.POST("/activate", middleware.RateLimitMiddleware(rateLimiter, "activate"), ActivateLicense)

		admin := api.Group("/admin")
		admin.POST("/login", middleware.RateLimitMiddleware(rateLimiter, "default"), Login)

		protected := admin.Group("")
		protected.Use(middleware.AdminAuthMiddleware())
		{
			protected.GET("/licenses", ListLicenses)
			protected.POST("/licenses", CreateLicense)
			protected.GET("/licenses/expiring", GetExpiringLicenses)
			protected.GET("/licenses/:id", GetLicenseDetails)
			protected.PUT("/licenses/:id", UpdateLicense)
			protected.DELETE("/licenses/:id", DeleteLicense)
			protected.POST("/licenses/:id/extend", ExtendLicense)
			protected.POST("/licenses/:id/status", ChangeLicenseStatus)
			protected.GET("/licenses/:id/activations", GetLicenseActivations)

			protected.GET("/activations", GetActivations)
			protected.GET("/activations/:id", GetActivationDetails)
			protected.POST("/activations/:id/status", SetActivationStatus)

			protected.GET("/logs/recent", GetRecentLogs)
			protected.POST("/logs/clear", ClearOldLogs)

			protected.GET("/verifications/stats", GetVerificationStats)
			protected.GET("/verifications/recent", GetRecentVerifications)
			protected.GET("/verifications/live", GetLiveActivity)

			protected.GET("/stats", GetLicenseStats)
			protected.GET("/monitor", GetMonitor)
			protected.GET("/alerts", GetAlerts)
			protected.GET("/system", GetSystemStats)

			protected.POST("/sweep", RunSweep)
		}
	}

	// Liveness and scraping endpoints stay outside the rate limited groups
	r.GET("/health", HealthCheck)
	r.GET("/metrics", metrics.Handler())
}
