package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	Port       string
	Env        string

	// Payment provider (Monobank partner installments API)
	MonoStoreID     string
	MonoStoreSecret string
	MonoBaseURL     string

	// CRM
	CRMProvider      string
	BitrixWebhookURL string

	// Client phone validation
	PhonePrefix string
	PhoneLength int

	// Best-effort notifications
	NotifyEmail string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	config := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENV", "development"),

		MonoStoreID:     os.Getenv("MONO_STORE_ID"),
		MonoStoreSecret: os.Getenv("MONO_STORE_SECRET"),
		MonoBaseURL:     getEnv("MONO_BASE_URL", "https://u2-demo-ext.mono.st4g3.com"),

		CRMProvider:      getEnv("CRM_PROVIDER", "bitrix"),
		BitrixWebhookURL: os.Getenv("BITRIX_WEBHOOK_URL"),

		PhonePrefix: getEnv("PHONE_PREFIX", "+380"),
		NotifyEmail: os.Getenv("NOTIFY_EMAIL"),
	}

	phoneLength, err := strconv.Atoi(getEnv("PHONE_LENGTH", "13"))
	if err != nil {
		return nil, fmt.Errorf("invalid PHONE_LENGTH: %v", err)
	}
	config.PhoneLength = phoneLength

	if config.MonoStoreID == "" || config.MonoStoreSecret == "" {
		return nil, fmt.Errorf("MONO_STORE_ID and MONO_STORE_SECRET are required")
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
