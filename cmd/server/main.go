package main

import (
	"log"
	"time"

	"license-server/internal/api"
	"license-server/internal/config"
	"license-server/internal/database"
	"license-server/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}

	// Initialize logging
	logging.InitLogging(config.AppConfig.LogFile)

	// Initialize database; an unreachable database is fatal at boot
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	// Wire services and start the health monitor
	healthService := api.InitServices()
	healthService.Start()
	defer healthService.Stop()

	// Optional in-process sweep loop; cron hitting /api/admin/sweep is the
	// usual driver, this covers deployments without one.
	startSweepLoop()

	// Set Gin mode
	gin.SetMode(config.AppConfig.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r)

	// Start server
	port := config.AppConfig.Port
	logging.Infof("Starting license server on port %s", port)

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func startSweepLoop() {
	interval := time.Duration(config.AppConfig.SweepIntervalMinutes) * time.Minute
	if interval <= 0 {
		return
	}

	logging.Infof("Starting expiry sweep loop, interval %s", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			sent, err := api.Sweep()
			if err != nil {
				logging.Errorf("Expiry sweep failed: %v", err)
				continue
			}
			if sent > 0 {
				logging.Infof("Expiry sweep sent %d notifications", sent)
			}
		}
	}()
}
