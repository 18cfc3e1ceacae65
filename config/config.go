package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort     string
	ServerHost     string
	AppURL         string
	AllowedOrigins []string

	// Database configuration
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	MigrationsDir string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Auth provider JWT secret
	JWTSecret string

	// Assistant service
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	MealPlanAssistantID string
	RecipeAssistantID   string
	PollInterval        time.Duration
	PollMaxAttempts     int

	// Billing
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceID       string

	// Failed-payload archive (optional)
	S3Bucket  string
	AWSRegion string

	// Logging
	LogLevel  string
	LogFormat string

	// Plans and quotas
	FreeDailyGenerations int
	FreeSavedRecipes     int
	ProvisionalPlanTTL   time.Duration
}

// settings are looked up by their secret file name; the environment
// variable name is the upper-cased form.
var settings = []string{
	"server_port", "server_host", "app_url", "allowed_origins",
	"db_host", "db_port", "db_user", "db_password", "db_name", "db_ssl_mode", "migrations_dir",
	"redis_host", "redis_port", "redis_password", "redis_url",
	"jwt_secret",
	"openai_api_key", "openai_base_url", "openai_meal_plan_assistant_id", "openai_recipe_assistant_id",
	"poll_interval", "poll_max_attempts",
	"stripe_secret_key", "stripe_webhook_secret", "stripe_price_id",
	"s3_bucket", "aws_region",
	"log_level", "log_format",
	"free_daily_generations", "free_saved_recipes", "provisional_plan_ttl",
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	var values map[string]string
	switch env {
	case CI:
		values = loadCIValues()
	case Development, Test:
		// A missing .env file is not an error
		_ = godotenv.Load()
		values = loadSecretValues()
	case Production:
		values = loadSecretValues()
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	cfg, err := fromValues(values)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s configuration: %w", env, err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadCIValues reads only environment variables
func loadCIValues() map[string]string {
	values := make(map[string]string, len(settings))
	for _, name := range settings {
		values[name] = strings.TrimSpace(os.Getenv(envName(name)))
	}
	return values
}

// loadSecretValues prefers Docker secrets and falls back to the environment
func loadSecretValues() map[string]string {
	values := make(map[string]string, len(settings))
	for _, name := range settings {
		if v := readSecret(name); v != "" {
			values[name] = v
			continue
		}
		values[name] = strings.TrimSpace(os.Getenv(envName(name)))
	}
	return values
}

func fromValues(v map[string]string) (*Config, error) {
	cfg := &Config{
		ServerPort:          withDefault(v["server_port"], "8080"),
		ServerHost:          withDefault(v["server_host"], "0.0.0.0"),
		AppURL:              strings.TrimRight(v["app_url"], "/"),
		AllowedOrigins:      splitList(withDefault(v["allowed_origins"], "*")),
		DBHost:              v["db_host"],
		DBPort:              withDefault(v["db_port"], "5432"),
		DBUser:              v["db_user"],
		DBPassword:          v["db_password"],
		DBName:              v["db_name"],
		DBSSLMode:           withDefault(v["db_ssl_mode"], "disable"),
		MigrationsDir:       withDefault(v["migrations_dir"], "migrations"),
		RedisHost:           v["redis_host"],
		RedisPort:           withDefault(v["redis_port"], "6379"),
		RedisPassword:       v["redis_password"],
		RedisDB:             0, // This is a constant, not a secret
		RedisURL:            v["redis_url"],
		JWTSecret:           v["jwt_secret"],
		OpenAIAPIKey:        v["openai_api_key"],
		OpenAIBaseURL:       strings.TrimRight(withDefault(v["openai_base_url"], "https://api.openai.com/v1"), "/"),
		MealPlanAssistantID: v["openai_meal_plan_assistant_id"],
		RecipeAssistantID:   v["openai_recipe_assistant_id"],
		StripeSecretKey:     v["stripe_secret_key"],
		StripeWebhookSecret: v["stripe_webhook_secret"],
		StripePriceID:       v["stripe_price_id"],
		S3Bucket:            v["s3_bucket"],
		AWSRegion:           v["aws_region"],
		LogLevel:            withDefault(v["log_level"], "info"),
		LogFormat:           withDefault(v["log_format"], "json"),
	}

	var err error
	if cfg.PollInterval, err = parseDuration("poll_interval", v["poll_interval"], time.Second); err != nil {
		return nil, err
	}
	if cfg.ProvisionalPlanTTL, err = parseDuration("provisional_plan_ttl", v["provisional_plan_ttl"], 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PollMaxAttempts, err = parseInt("poll_max_attempts", v["poll_max_attempts"], 30); err != nil {
		return nil, err
	}
	if cfg.FreeDailyGenerations, err = parseInt("free_daily_generations", v["free_daily_generations"], 5); err != nil {
		return nil, err
	}
	if cfg.FreeSavedRecipes, err = parseInt("free_saved_recipes", v["free_saved_recipes"], 3); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DSN returns the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func envName(name string) string {
	return strings.ToUpper(name)
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt(name, v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, v)
	}
	return n, nil
}

func parseDuration(name, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", name, v)
	}
	return d, nil
}
