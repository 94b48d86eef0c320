package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port" validate:"required"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Storage
	DatabasePath string `json:"database_path" validate:"required"`
	SourcesFile  string `json:"sources_file"`

	// Ingestion
	FetchConcurrency  int           `json:"fetch_concurrency" validate:"min=1"`
	FetchTimeout      time.Duration `json:"fetch_timeout" validate:"gt=0"`
	MaxArticleAgeDays int           `json:"max_article_age_days" validate:"min=1"`

	// Analysis and search
	AnalyzeMinLength    int `json:"analyze_min_length" validate:"min=0"`
	AnalyzeDefaultLimit int `json:"analyze_default_limit" validate:"min=1"`
	SearchDefaultLimit  int `json:"search_default_limit" validate:"min=1"`

	// Redis configuration, empty URL means in-process locks
	RedisURL    string        `json:"redis_url"`
	RedisPrefix string        `json:"redis_prefix"`
	LockTTL     time.Duration `json:"lock_ttl" validate:"gt=0"`

	// AI Configuration
	AIProvider  string        `json:"ai_provider" validate:"oneof=gemini anthropic ollama"`
	AIApiKey    string        `json:"ai_api_key"`
	AIModel     string        `json:"ai_model"`
	AIBaseURL   string        `json:"ai_base_url" validate:"omitempty,url"`
	AITimeout   time.Duration `json:"ai_timeout" validate:"gt=0"`
	AIMaxTokens int           `json:"ai_max_tokens" validate:"min=1"`

	// CloudFlare R2 raw feed archive, disabled unless bucket and endpoint are set
	ArchiveBucket string `json:"archive_bucket"`
	R2Endpoint    string `json:"r2_endpoint" validate:"omitempty,url"`
	R2AccessKey   string `json:"r2_access_key"`
	R2SecretKey   string `json:"r2_secret_key"`
	R2Region      string `json:"r2_region"`

	// Logging
	LogLevel  string `json:"log_level" validate:"omitempty,oneof=debug info warn error fatal panic disabled trace"`
	LogFile   string `json:"log_file"`
	LogPretty bool   `json:"log_pretty"`

	// Security
	AdminAPIKey string `json:"admin_api_key"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// FromEnv reads the configuration without loading .env or validating.
func FromEnv() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		DatabasePath: getEnv("DATABASE_PATH", "./data/illustrate.db"),
		SourcesFile:  getEnv("SOURCES_FILE", "./config/sources.yaml"),

		FetchConcurrency:  getEnvAsInt("FETCH_CONCURRENCY", 5),
		FetchTimeout:      getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
		MaxArticleAgeDays: getEnvAsInt("MAX_ARTICLE_AGE_DAYS", 30),

		AnalyzeMinLength:    getEnvAsInt("ANALYZE_MIN_LENGTH", 100),
		AnalyzeDefaultLimit: getEnvAsInt("ANALYZE_DEFAULT_LIMIT", 10),
		SearchDefaultLimit:  getEnvAsInt("SEARCH_DEFAULT_LIMIT", 20),

		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "illustrate:"),
		LockTTL:     getEnvAsDuration("LOCK_TTL", 30*time.Minute),

		AIProvider:  getEnv("AI_PROVIDER", "anthropic"),
		AIApiKey:    getEnv("AI_API_KEY", ""),
		AIModel:     getEnv("AI_MODEL", ""),
		AIBaseURL:   getEnv("AI_BASE_URL", ""),
		AITimeout:   getEnvAsDuration("AI_TIMEOUT", 60*time.Second),
		AIMaxTokens: getEnvAsInt("AI_MAX_TOKENS", 1000),

		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),
		R2Endpoint:    getEnv("R2_ENDPOINT", ""),
		R2AccessKey:   getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey:   getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Region:      getEnv("R2_REGION", "auto"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// ArchiveEnabled reports whether raw feeds should be written to the bucket.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != "" && c.R2Endpoint != ""
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
