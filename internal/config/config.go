package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Supported store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds application configuration
type Config struct {
	StoreDriver    string
	DBConnStr      string
	SQLitePath     string
	GRPCAddr       string
	APIToken       string
	LogLevel       string
	LogPretty      bool
	ProfileFile    string
	ExpirySchedule string
	RetrySchedule  string
	PriceTTL       time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		StoreDriver:    getEnv("STORE_DRIVER", DriverPostgres),
		DBConnStr:      getEnv("DB_CONN_STR", ""),
		SQLitePath:     getEnv("SQLITE_PATH", "./data/realfolio.db"),
		GRPCAddr:       getEnv("GRPC_ADDR", ":8080"),
		APIToken:       getEnv("API_TOKEN", "dev-token"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvAsBool("LOG_PRETTY", false),
		ProfileFile:    getEnv("LEDGER_PROFILE_FILE", ""),
		ExpirySchedule: getEnv("EXPIRY_SCHEDULE", "@daily"),
		RetrySchedule:  getEnv("RETRY_SCHEDULE", "@every 1h"),
		PriceTTL:       getEnvAsDuration("PRICE_TTL", 15*time.Minute),
	}

	if cfg.DBConnStr == "" {
		// If explicit string is missing, build it from individual vars (Docker friendly)
		cfg.DBConnStr = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			getEnv("DB_HOST", "localhost"),
			getEnvAsInt("DB_PORT", 5432),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "realfolio"),
		)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DBConnStr == "" {
			return fmt.Errorf("DB_CONN_STR is required for the postgres store")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.StoreDriver)
	}

	if c.GRPCAddr == "" {
		return fmt.Errorf("GRPC_ADDR is required")
	}
	if c.APIToken == "" {
		return fmt.Errorf("API_TOKEN is required")
	}
	if c.PriceTTL <= 0 {
		return fmt.Errorf("PRICE_TTL must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
