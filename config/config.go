package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL        string
	Port               string
	GoEnv              string
	Auth0Domain        string
	Auth0Audience      string
	SessionSecret      string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	MailFrom           string
	GeocoderURL        string
	UploadDir          string
	PublicBaseURL      string
	LogLevel           string
}

var currentConfig *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// If environment-specific file doesn't exist, try .env
		if err := godotenv.Load(); err != nil {
			// In production, environment variables are set directly
			// so it's okay if .env files don't exist
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	config := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnv("PORT", "8080"),
		GoEnv:              getEnv("GO_ENV", "development"),
		Auth0Domain:        getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:      getEnv("AUTH0_AUDIENCE", ""),
		SessionSecret:      getEnv("SESSION_SECRET", "manga-store-dev-secret"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           smtpPort,
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		MailFrom:           getEnv("MAIL_FROM", "no-reply@mangastore.example"),
		GeocoderURL:        getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	currentConfig = config
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// GetConfig returns the currently loaded configuration
func GetConfig() *Config {
	return currentConfig
}

// SetConfig replaces the current configuration (primarily for testing)
func SetConfig(c *Config) {
	currentConfig = c
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
