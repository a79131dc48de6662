package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Database DatabaseConfig
	App      AppConfig
	Exec     ExecConfig
	Results  ResultsConfig
}

type ServerConfig struct {
	Port string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	// DSN is optional; when empty the job summary recorder is disabled.
	DSN string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
	APIKey      string
}

type ExecConfig struct {
	// Timeout is the wall-clock limit for a single model run.
	Timeout time.Duration
	// MaxConcurrentJobs caps simultaneous model runs.
	MaxConcurrentJobs int
	// RatePerSecond limits accepted execution requests.
	RatePerSecond float64
}

type ResultsConfig struct {
	// Backend is "local" or "s3".
	Backend         string
	TTL             time.Duration
	CleanupSchedule string
	S3Bucket        string
	S3Prefix        string
	S3PublicURL     string
	AWSRegion       string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DB_DSN", ""),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			APIKey:      getEnv("API_KEY", ""),
		},
		Exec: ExecConfig{
			Timeout:           getEnvAsDuration("EXEC_TIMEOUT", 30*time.Minute),
			MaxConcurrentJobs: getEnvAsInt("MAX_CONCURRENT_JOBS", 2),
			RatePerSecond:     getEnvAsFloat("EXEC_RATE_PER_SECOND", 1),
		},
		Results: ResultsConfig{
			Backend:         getEnv("RESULT_BACKEND", "local"),
			TTL:             getEnvAsDuration("RESULT_TTL", 7*24*time.Hour),
			CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 0 0 * * *"),
			S3Bucket:        getEnv("S3_BUCKET", ""),
			S3Prefix:        getEnv("S3_PREFIX", "mitgcm-results"),
			S3PublicURL:     getEnv("S3_PUBLIC_URL", ""),
			AWSRegion:       getEnv("AWS_REGION", "eu-central-1"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.Exec.MaxConcurrentJobs < 1 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be at least 1")
	}

	if c.Results.Backend != "local" && c.Results.Backend != "s3" {
		return fmt.Errorf("RESULT_BACKEND must be \"local\" or \"s3\"")
	}

	if c.Results.Backend == "s3" && c.Results.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when RESULT_BACKEND=s3")
	}

	return nil
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
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
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
		log.Printf("Warning: Invalid float for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}
