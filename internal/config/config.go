package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       []string
	HTTPAddr          string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	// Booking rules
	Location        *time.Location
	SlotGranularity time.Duration
	EditWindow      time.Duration

	// Background sweeps
	CompletionSweepInterval time.Duration
	RetentionSweepInterval  time.Duration
	RetentionWindow         time.Duration

	// Collaborators
	AMQPURL      string
	AMQPExchange string
	StoragePath  string
	OTLPEndpoint string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	// Production origins, comma separated (default: empty)
	cfg.ProdOrigins = splitList(getEnv("PROD_ORIGINS", ""))

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	// Bcrypt cost for password hashing (default: 12)
	cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	// Reservation dates and times are wall-clock values in this zone.
	tzName := getEnv("TIMEZONE", "Local")
	cfg.Location, err = time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}

	if cfg.SlotGranularity, err = getEnvAsDuration("SLOT_GRANULARITY", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SlotGranularity < time.Minute || cfg.SlotGranularity%time.Minute != 0 {
		return nil, fmt.Errorf("SLOT_GRANULARITY must be a whole number of minutes, got %s", cfg.SlotGranularity)
	}
	if cfg.EditWindow, err = getEnvAsDuration("EDIT_WINDOW", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CompletionSweepInterval, err = getEnvAsDuration("COMPLETION_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RetentionSweepInterval, err = getEnvAsDuration("RETENTION_SWEEP_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RetentionWindow, err = getEnvAsDuration("RETENTION_WINDOW", 30*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.AMQPURL = getEnv("AMQP_URL", "")
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", "field-booking.events")
	cfg.StoragePath = getEnv("STORAGE_PATH", "./data")
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsDuration parses values such as "15m" or "720h"; non-positive durations are rejected.
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %s", key, valStr)
	}
	return val, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
