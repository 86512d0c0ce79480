package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the referral service
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Referral ReferralConfig
	Mail     MailConfig
	Treasury TreasuryConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds redis configuration for the batch lock
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPPort string
}

// ReferralConfig holds referral domain configuration
type ReferralConfig struct {
	// BaseReferralLink is the public signup URL the ref token is appended to.
	BaseReferralLink string
	// PayoutReportRecipient receives the payout batch CSV.
	PayoutReportRecipient string
}

// TreasuryConfig holds configuration for the on-chain treasury service
type TreasuryConfig struct {
	BaseURL string
	APIKey  string
}

// MailConfig holds SMTP configuration for payout reports
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 3306),
			User:            getEnv("DB_USER", "root"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_DATABASE", "cryptonary"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			HTTPPort: getEnv("HTTP_PORT", "8080"),
		},
		Referral: ReferralConfig{
			BaseReferralLink:      getEnv("BASE_REFERRAL_LINK", "https://cryptonary.com/signup"),
			PayoutReportRecipient: getEnv("PAYOUT_REPORT_RECIPIENT", "finance@cryptonary.com"),
		},
		Treasury: TreasuryConfig{
			BaseURL: getEnv("TREASURY_URL", "http://treasury-service:8080"),
			APIKey:  getEnv("TREASURY_API_KEY", ""),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@cryptonary.com"),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
