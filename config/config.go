package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourusername/billing-saas/logger"
	"github.com/yourusername/billing-saas/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port           string
	DatabaseURL    string
	JWTSecret      string
	DBTimeout      time.Duration
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "10000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "console"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	timeoutSecs, err := strconv.Atoi(getEnvOrDefault("DB_TIMEOUT_SECONDS", "5"))
	if err != nil || timeoutSecs <= 0 {
		timeoutSecs = 5
	}
	cfg.DBTimeout = time.Duration(timeoutSecs) * time.Second

	origins := getEnvOrDefault("ALLOWED_ORIGINS", "*")
	for _, origin := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	return cfg, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	log := logger.WithComponent("database")

	var db *gorm.DB
	var err error

	// The database container may still be starting when we boot.
	for i := 0; i < 5; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("database not ready, retrying in 2s")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for every entity the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Company{},
		&models.AuthUser{},
		&models.User{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Payment{},
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
