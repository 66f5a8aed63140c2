package database

import (
	"context"
	"fmt"
	"time"

	"license-server/internal/config"
	"license-server/internal/models"
	"license-server/pkg/logging"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	DB          *gorm.DB
	RedisClient *redis.Client
)

// InitDatabase initializes database connections
func InitDatabase() error {
	if err := initSQL(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := initRedis(); err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}

	if err := autoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := seedDefaultAdmin(); err != nil {
		return fmt.Errorf("failed to seed default admin: %w", err)
	}

	return nil
}

// initSQL opens PostgreSQL when DATABASE_URL is set, SQLite otherwise
func initSQL() error {
	var err error

	if dsn := config.AppConfig.DatabaseURL; dsn == "" {
		logging.Infof("Database URL not set, using SQLite for development")
		DB, err = gorm.Open(sqlite.Open("license-server.db"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
			NamingStrategy: schema.NamingStrategy{
				SingularTable: true,
			},
		})
	} else {
		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
			NamingStrategy: schema.NamingStrategy{
				SingularTable: true,
			},
		})
	}

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.Infof("Database connected successfully")
	return nil
}

// initRedis initializes the Redis connection. Redis only backs the rate
// limiter, so a missing Redis is a warning, not a boot failure, unless the
// limiter backend is explicitly set to redis.
func initRedis() error {
	redisURL := config.AppConfig.RedisURL
	if redisURL == "" {
		if config.AppConfig.RateLimitBackend == "redis" {
			return fmt.Errorf("REDIS_URL is not set")
		}
		return nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	RedisClient = redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		if config.AppConfig.RateLimitBackend == "redis" {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logging.Warnf("Redis unreachable, falling back to file rate limiting: %v", err)
		RedisClient = nil
		return nil
	}

	logging.Infof("Redis connected successfully: %s", maskRedisURL(redisURL))
	return nil
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-10:]
	}
	return "***"
}

// autoMigrate performs database migration
func autoMigrate() error {
	return DB.AutoMigrate(
		&models.License{},
		&models.Activation{},
		&models.LicenseLog{},
		&models.Admin{},
		&models.WhatsAppLog{},
	)
}

// seedDefaultAdmin creates the initial panel account when none exists.
// Password must be changed after first login.
func seedDefaultAdmin() error {
	var count int64
	if err := DB.Model(&models.Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.Admin{
		Username: "admin",
		Password: string(hash),
		Role:     "admin",
		Enabled:  true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create default admin: %w", err)
	}

	logging.Warnf("Created default admin account 'admin'; change its password")
	return nil
}

// GetDB returns database instance
func GetDB() *gorm.DB {
	return DB
}

// GetRedis returns Redis client, nil when Redis is not configured
func GetRedis() *redis.Client {
	return RedisClient
}

// CloseDatabase closes database connections
func CloseDatabase() error {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logging.Errorf("Failed to close database: %v", err)
			}
		}
	}

	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logging.Errorf("Failed to close Redis: %v", err)
		}
	}

	return nil
}
