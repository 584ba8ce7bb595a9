package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Server
	ApiPort        string
	ServiceApiPort string
	ServiceApiKey  string

	// Site
	AppName string
	SiteURL string

	// text.lk SMS gateway
	TextLKApiToken string
	TextLKSenderID string
	TextLKApiURL   string

	// Consent verification
	VerificationTTL time.Duration

	// Expiry sweeps
	ListingExpiryBatch      int
	SubscriptionExpiryBatch int
	ReminderLeadDays        int
	ReminderBatch           int

	// Email (agent notifications)
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "landsalelkdb")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.ServiceApiKey = getEnv("SERVICE_API_KEY", "")
	cfg.AppName = getEnv("APP_NAME", "LandSale.lk")
	cfg.SiteURL = getEnv("SITE_URL", "https://landsale.lk")
	cfg.TextLKApiToken = getEnv("TEXT_LK_API_TOKEN", "")
	cfg.TextLKSenderID = getEnv("TEXT_LK_SENDER_ID", "LandSale")
	cfg.TextLKApiURL = getEnv("TEXT_LK_API_URL", "https://app.text.lk/api/v3/sms/send")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@landsale.lk")

	// Load numeric and time duration values with defaults and parsing
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	verificationTTLHours, err := strconv.ParseInt(getEnv("VERIFICATION_TTL_HOURS", "72"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid VERIFICATION_TTL_HOURS: %w", err)
	}
	cfg.VerificationTTL = time.Duration(verificationTTLHours) * time.Hour

	cfg.ListingExpiryBatch, err = strconv.Atoi(getEnv("LISTING_EXPIRY_BATCH", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid LISTING_EXPIRY_BATCH: %w", err)
	}

	cfg.SubscriptionExpiryBatch, err = strconv.Atoi(getEnv("SUBSCRIPTION_EXPIRY_BATCH", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUBSCRIPTION_EXPIRY_BATCH: %w", err)
	}

	cfg.ReminderLeadDays, err = strconv.Atoi(getEnv("REMINDER_LEAD_DAYS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_LEAD_DAYS: %w", err)
	}

	cfg.ReminderBatch, err = strconv.Atoi(getEnv("REMINDER_BATCH", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_BATCH: %w", err)
	}

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	return cfg, nil
}
