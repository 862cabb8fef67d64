package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Session / login
	Session SessionConfig

	// SoC chart policy
	Chart ChartConfig

	// CORS origins allowed on /api and /ws
	AllowedOrigins []string

	// Reverse proxies whose X-Forwarded-For is believed (IPs or CIDRs)
	TrustedProxies []string

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SessionConfig controls login sessions and throttling
type SessionConfig struct {
	CookieName   string
	TTL          time.Duration
	SecureCookie bool

	// Login attempts allowed per client within LoginWindow
	LoginAttempts int
	LoginWindow   time.Duration
}

// ChartConfig holds the SoC color tier thresholds.
// Values at or above HighThreshold are "high", values below LowThreshold are "low".
type ChartConfig struct {
	LowThreshold  float64
	HighThreshold float64
	HistoryPoints int
}

// Load reads configuration from environment variables.
// envFiles are tried before the default .env locations.
// ⭐ SSOT: the only function calling os.Getenv()
func Load(envFiles ...string) (*Config, error) {
	loadEnvFile(envFiles...)

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "5000"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Session: SessionConfig{
			CookieName:    getEnv("SESSION_COOKIE", "fleet_session"),
			TTL:           getEnvAsDuration("SESSION_TTL", "12h"),
			SecureCookie:  getEnvAsBool("SESSION_SECURE_COOKIE", false),
			LoginAttempts: getEnvAsInt("LOGIN_ATTEMPTS", 10),
			LoginWindow:   getEnvAsDuration("LOGIN_WINDOW", "1m"),
		},

		Chart: ChartConfig{
			LowThreshold:  getEnvAsFloat("SOC_LOW_THRESHOLD", 30),
			HighThreshold: getEnvAsFloat("SOC_HIGH_THRESHOLD", 80),
			HistoryPoints: getEnvAsInt("SOC_HISTORY_POINTS", 20),
		},

		AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies: getEnvAsList("TRUSTED_PROXIES", nil),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if err := c.Chart.Validate(); err != nil {
		return err
	}

	if c.Session.LoginAttempts <= 0 {
		return fmt.Errorf("LOGIN_ATTEMPTS must be positive")
	}

	return nil
}

// Validate checks the SoC thresholds form a proper three-way partition of [0, 100]
func (c ChartConfig) Validate() error {
	low, high := c.LowThreshold, c.HighThreshold
	if math.IsNaN(low) || math.IsNaN(high) {
		return fmt.Errorf("SOC thresholds must be numbers")
	}
	if low < 0 || high > 100 {
		return fmt.Errorf("SOC thresholds must lie within [0, 100], got low=%v high=%v", low, high)
	}
	if low >= high {
		return fmt.Errorf("SOC_LOW_THRESHOLD (%v) must be below SOC_HIGH_THRESHOLD (%v)", low, high)
	}
	if c.HistoryPoints <= 0 {
		return fmt.Errorf("SOC_HISTORY_POINTS must be positive")
	}
	return nil
}

// IsProduction reports whether the server runs with production settings
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions (private, only used within this file)

// loadEnvFile loads the first existing file among extra and the .env locations
func loadEnvFile(extra ...string) {
	paths := append(append([]string{}, extra...), ".env")

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
