package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/bankountable/internal/domain/import/normalizer"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
	Parser        ParserConfig
	Upload        UploadConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	AllowedOrigins     []string
	RateLimitPerSecond int
	RateLimitBurst     int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

// ParserConfig controls statement extraction.
type ParserConfig struct {
	// Passphrases are tried in order for encrypted statements.
	Passphrases  []string
	AmountMin    int64
	AmountMax    int64
	CurrencyCode string
}

type UploadConfig struct {
	Dir      string
	MaxAge   time.Duration
	MaxBytes int64
	// SweepSchedule is a cron spec for deleting stale uploads.
	SweepSchedule string
}

const defaultMaxUploadBytes = 20 << 20

// Load reads configuration from environment variables, after loading an
// optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 20),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "bankountable"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Parser: ParserConfig{
			Passphrases:  passphrases(),
			AmountMin:    getEnvAsInt64("AMOUNT_MIN", 1000),
			AmountMax:    getEnvAsInt64("AMOUNT_MAX", 10_000_000),
			CurrencyCode: strings.ToUpper(getEnv("CURRENCY_CODE", "CLP")),
		},
		Upload: UploadConfig{
			Dir:           getEnv("UPLOAD_DIR", "./uploads"),
			MaxAge:        getEnvAsDuration("UPLOAD_MAX_AGE", 24*time.Hour),
			MaxBytes:      getEnvAsInt64("UPLOAD_MAX_BYTES", defaultMaxUploadBytes),
			SweepSchedule: getEnv("UPLOAD_SWEEP_SCHEDULE", "@hourly"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Parser.AmountMin <= 0 {
		return errors.New("AMOUNT_MIN must be positive")
	}
	if c.Parser.AmountMax <= c.Parser.AmountMin {
		return errors.New("AMOUNT_MAX must be greater than AMOUNT_MIN")
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	if c.Upload.Dir == "" {
		return errors.New("UPLOAD_DIR is required")
	}
	return nil
}

// Bounds returns the accepted amount range.
func (c *ParserConfig) Bounds() normalizer.Bounds {
	return normalizer.Bounds{
		Min: decimal.NewFromInt(c.AmountMin),
		Max: decimal.NewFromInt(c.AmountMax),
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// passphrases reads PDF_PASSWORDS, or PDF_PASSWORD_1 and PDF_PASSWORD_2.
func passphrases() []string {
	if list := getEnvAsList("PDF_PASSWORDS", nil); len(list) > 0 {
		return list
	}
	return []string{
		getEnv("PDF_PASSWORD_1", "0647"),
		getEnv("PDF_PASSWORD_2", "198306479"),
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
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
