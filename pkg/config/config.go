package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

type RateLimit struct {
	Limit  int
	Window time.Duration
}

type Config struct {
	ServerPort               string
	FirebaseProject          string
	ServiceAccountJSON       string
	ServiceAccountPath       string
	Environment              string
	StoreBackend             string
	RedisAddr                string
	IdentityCacheTTL         time.Duration
	MessageRateLimit         RateLimit
	RequestRateLimit         RateLimit
	LoginRateLimit           RateLimit
	NotificationIndicatorTTL time.Duration
	AllowedOrigins           []string
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		FirebaseProject:    getEnv("FIREBASE_PROJECT_ID", ""),
		ServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		Environment:        normalizeEnv(getEnv("ENVIRONMENT", "development")),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendFirestore)),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		IdentityCacheTTL:   getEnvAsDuration("IDENTITY_CACHE_TTL", 10*time.Minute),
		MessageRateLimit: RateLimit{
			Limit:  getEnvAsInt("MESSAGE_RATE_LIMIT", 10),
			Window: getEnvAsDuration("MESSAGE_RATE_WINDOW", time.Minute),
		},
		RequestRateLimit: RateLimit{
			Limit:  getEnvAsInt("REQUEST_RATE_LIMIT", 60),
			Window: getEnvAsDuration("REQUEST_RATE_WINDOW", time.Minute),
		},
		LoginRateLimit: RateLimit{
			Limit:  getEnvAsInt("LOGIN_RATE_LIMIT", 5),
			Window: getEnvAsDuration("LOGIN_RATE_WINDOW", time.Minute),
		},
		NotificationIndicatorTTL: getEnvAsDuration("NOTIFICATION_INDICATOR_TTL", 3*time.Second),
		AllowedOrigins:           getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the %s backend", BackendFirestore)
		}
	case BackendMemory:
		if c.Environment == "production" {
			return fmt.Errorf("the %s backend cannot run in production", BackendMemory)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UseDevTokens reports whether bearer tokens are accepted in the "dev:<uid>"
// form instead of being verified by Firebase Auth.
func (c *Config) UseDevTokens() bool {
	return c.StoreBackend == BackendMemory
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
