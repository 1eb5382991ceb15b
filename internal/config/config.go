package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Database
	DatabaseURL string

	// Auth0
	Auth0Domain   string
	Auth0Audience string
	Auth0ClientID string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Domain tunables
	BaseCurrency         string
	ForecastMonths       int
	ForecastWeeks        int
	AlertLookaheadMonths int
	UpcomingPaymentDays  int
	AutomationCronSpec   string

	// Rate limiting (§5)
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		Auth0Domain:          getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:        getEnv("AUTH0_AUDIENCE", ""),
		Auth0ClientID:        getEnv("AUTH0_CLIENT_ID", ""),
		Port:                 getEnv("PORT", "8080"),
		CORSOrigins:          strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:                  getEnv("ENV", "development"),
		BaseCurrency:         getEnv("BASE_CURRENCY", "ILS"),
		ForecastMonths:       getEnvInt("FORECAST_MONTHS", 6),
		ForecastWeeks:        getEnvInt("FORECAST_WEEKS", 12),
		AlertLookaheadMonths: getEnvInt("ALERT_LOOKAHEAD_MONTHS", 6),
		UpcomingPaymentDays:  getEnvInt("UPCOMING_PAYMENT_DAYS", 7),
		AutomationCronSpec:   getEnv("AUTOMATION_CRON_SPEC", "0 2 * * *"),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		RateLimitBurst:       getEnvInt("RATE_LIMIT_BURST", 10),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
