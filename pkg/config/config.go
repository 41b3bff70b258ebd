package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	// Path to the churn model artifact. Empty or missing file means the
	// engine runs with degraded scoring.
	ModelPath string

	// Optional redis URL for caching risk assessments.
	RedisURL     string
	RiskCacheTTL time.Duration

	// Bounded wait for account lock acquisition before an operation fails Busy.
	LockWaitTimeout time.Duration

	// Rate limit in ulule/limiter format, e.g. "100-M".
	RateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("MODEL_PATH", "churn_model.json")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("RISK_CACHE_TTL", "5m")
	viper.SetDefault("LOCK_WAIT_TIMEOUT", "3s")
	viper.SetDefault("RATE_LIMIT", "100-M")

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:  viper.GetString("PGSQL_URL"),
		Port:         viper.GetString("PORT"),
		IsProduction: viper.GetBool("IS_PRODUCTION"),
		ModelPath:    viper.GetString("MODEL_PATH"),
		RedisURL:     viper.GetString("REDIS_URL"),
		RateLimit:    viper.GetString("RATE_LIMIT"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set. Falling back to in-memory storage.")
	}

	cacheTTLStr := viper.GetString("RISK_CACHE_TTL")
	cacheTTL, err := time.ParseDuration(cacheTTLStr)
	if err != nil {
		cacheTTL = 5 * time.Minute
		log.Printf("Warning: Invalid value for RISK_CACHE_TTL ('%s'). Defaulting to %s.\n", cacheTTLStr, cacheTTL)
	}
	cfg.RiskCacheTTL = cacheTTL

	lockWaitStr := viper.GetString("LOCK_WAIT_TIMEOUT")
	lockWait, err := time.ParseDuration(lockWaitStr)
	if err != nil {
		lockWait = 3 * time.Second
		log.Printf("Warning: Invalid value for LOCK_WAIT_TIMEOUT ('%s'). Defaulting to %s.\n", lockWaitStr, lockWait)
	}
	cfg.LockWaitTimeout = lockWait

	return cfg, nil
}
