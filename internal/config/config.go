package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"pim-service/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// NATS
	NATSURL string

	// Server
	Port        string
	Environment string

	// Services
	ShopifyShopDomain  string
	ShopifyAccessToken string

	// Pagination
	DefaultPageSize int
	MaxPageSize     int

	// Import settings
	MaxUploadBytes int64
	SessionMaxAge  time.Duration
	UploadSpoolDir string
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))
	maxUploadMB, _ := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "25"))
	sessionMaxAgeMin, _ := strconv.Atoi(getEnv("IMPORT_SESSION_MAX_AGE_MINUTES", "120"))

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "pim_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// NATS (empty disables event publishing)
		NATSURL: getEnv("NATS_URL", ""),

		// Server
		Port:        getEnv("PORT", "8087"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Shopify sync
		ShopifyShopDomain:  getEnv("SHOPIFY_SHOP_DOMAIN", ""),
		ShopifyAccessToken: getEnv("SHOPIFY_ACCESS_TOKEN", ""),

		// Pagination
		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,

		// Import settings
		MaxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
		SessionMaxAge:  time.Duration(sessionMaxAgeMin) * time.Minute,
		UploadSpoolDir: getEnv("UPLOAD_SPOOL_DIR", os.TempDir()),
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate models to keep schema up to date
	// This will add missing columns but won't delete existing columns
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.ProductVariant{},
		&models.ProductAttribute{},
		&models.VariantAttribute{},
		&models.Barcode{},
		&models.BarcodePoolEntry{},
		&models.Pricing{},
		&models.MarketplaceVariant{},
		&models.MarketplaceBarcode{},
		&models.ImportMapping{},
	); err != nil {
		// Ignore errors about dropping non-existent constraints, which happen
		// when constraint naming conventions changed between gorm versions
		errStr := err.Error()
		if strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "constraint") {
			log.Printf("Note: Migration constraint warning (safe to ignore): %v", err)
		} else {
			return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
		}
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
