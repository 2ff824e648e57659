package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Config holds configuration for the gateway.
type Config struct {
	HTTPPort       string
	AllowedOrigins []string // "*" means allow all (credential-less)
	StaticIndex    string

	OpenAI   OpenAIConfig
	Quota    QuotaConfig
	Stripe   StripeConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

// OpenAIConfig holds completion provider settings
type OpenAIConfig struct {
	APIKey           string
	Model            string
	Timeout          time.Duration
	Streaming        bool   // stream /ask answers as they arrive
	SystemPromptFile string // optional override for the built-in persona prompt
}

// QuotaConfig holds free-tier quota settings
type QuotaConfig struct {
	FreePerWeek int
}

// StripeConfig holds billing provider settings
type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	PriceID        string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings for the optional profile cache.
// An empty Address disables the cache entirely.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// ParseOrigins splits a comma-separated origin list. A single "*" entry
// collapses to the wildcard list.
func ParseOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 1 && origins[0] == "*" {
		return []string{"*"}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// The quota ledger is fail-closed; the service cannot meter
		// free usage without its store.
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		HTTPPort:       getEnvString("HTTP_PORT", "8080"),
		AllowedOrigins: ParseOrigins(getEnvString("ALLOWED_ORIGINS", "*")),
		StaticIndex:    getEnvString("STATIC_INDEX", "index.html"),
		OpenAI: OpenAIConfig{
			APIKey:           os.Getenv("OPENAI_API_KEY"),
			Model:            getEnvString("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout:          getEnvDuration("OPENAI_TIMEOUT", 60*time.Second),
			Streaming:        getEnvBool("ASK_STREAMING", false),
			SystemPromptFile: os.Getenv("SYSTEM_PROMPT_FILE"),
		},
		Quota: QuotaConfig{
			FreePerWeek: getEnvInt("FREE_QUOTA_PER_WEEK", 3),
		},
		Stripe: StripeConfig{
			SecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
			PublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
			PriceID:        os.Getenv("STRIPE_PRICE_ID"),
		},
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Redis: RedisConfig{
			Address:      os.Getenv("REDIS_ADDRESS"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}

	return cfg, nil
}
