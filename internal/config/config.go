package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kapu/post-reactors/internal/constants"
)

type Config struct {
	Provider ProviderConfig
	LinkedIn LinkedInConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Server   ServerConfig
	Scrape   ScrapeConfig
	Logging  LoggingConfig
}

type ProviderConfig struct {
	APIKey  string
	AgentID string
	BaseURL string
	Timeout time.Duration
	// MappingFile points at a YAML argument mapping; env keys below are used when empty.
	MappingFile      string
	Strategy         string
	URLKey           string
	SessionKey       string
	CompanyKey       string
	TargetKey        string
	CompanyURLFormat string
}

type LinkedInConfig struct {
	SessionCookie string
}

type PostgresConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	AutoMigrate bool
}

// DSN returns a lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type ServerConfig struct {
	Port  int
	Debug bool
}

type ScrapeConfig struct {
	PollInterval     time.Duration
	MaxPollAttempts  int
	BatchConcurrency int
	LockTTL          time.Duration
	ProfileCacheTTL  time.Duration
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Provider: ProviderConfig{
			APIKey:           getEnv("PHANTOMBUSTER_API_KEY", ""),
			AgentID:          getEnv("PHANTOMBUSTER_PHANTOM_ID", ""),
			BaseURL:          getEnv("PHANTOMBUSTER_BASE_URL", constants.APIConfig.PhantomBusterBaseURL),
			Timeout:          getEnvDuration("PHANTOMBUSTER_TIMEOUT", constants.APIConfig.PhantomBusterTimeout),
			MappingFile:      getEnv("PROVIDER_ARGUMENT_MAPPING_FILE", ""),
			Strategy:         getEnv("PROVIDER_ARGUMENT_STRATEGY", "direct"),
			URLKey:           getEnv("PROVIDER_URL_KEY", "postUrl"),
			SessionKey:       getEnv("PROVIDER_SESSION_KEY", "sessionCookie"),
			CompanyKey:       getEnv("PROVIDER_COMPANY_KEY", "companyUrl"),
			TargetKey:        getEnv("PROVIDER_TARGET_KEY", "postUrl"),
			CompanyURLFormat: getEnv("PROVIDER_COMPANY_URL_FORMAT", ""),
		},
		LinkedIn: LinkedInConfig{
			SessionCookie: getEnv("LINKEDIN_SESSION_COOKIE", ""),
		},
		Postgres: PostgresConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			User:        getEnv("POSTGRES_USER", "reactors"),
			Password:    getEnv("POSTGRES_PASSWORD", ""),
			Database:    getEnv("POSTGRES_DB", "reactors"),
			SSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
			AutoMigrate: getEnvBool("POSTGRES_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:  getEnvInt("SERVER_PORT", 3000),
			Debug: getEnvBool("SERVER_DEBUG", false),
		},
		Scrape: ScrapeConfig{
			PollInterval:     getEnvDuration("SCRAPE_POLL_INTERVAL", constants.PollConfig.Interval),
			MaxPollAttempts:  getEnvInt("SCRAPE_MAX_POLL_ATTEMPTS", constants.PollConfig.MaxAttempts),
			BatchConcurrency: getEnvInt("SCRAPE_BATCH_CONCURRENCY", constants.BatchConfig.MaxConcurrency),
			LockTTL:          getEnvDuration("SCRAPE_LOCK_TTL", constants.CacheTTL.ScrapeLock),
			ProfileCacheTTL:  getEnvDuration("PROFILE_CACHE_TTL", constants.CacheTTL.PostProfiles),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks settings the process cannot start without. Provider credentials are
// checked per launch instead, so the UI stays usable while they are being configured.
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("PHANTOMBUSTER_BASE_URL is required")
	}
	switch c.Provider.Strategy {
	case "direct", "company":
	default:
		return fmt.Errorf("PROVIDER_ARGUMENT_STRATEGY must be direct or company, got %q", c.Provider.Strategy)
	}
	if c.Postgres.Host == "" || c.Postgres.Database == "" {
		return fmt.Errorf("POSTGRES_HOST and POSTGRES_DB are required")
	}
	if c.Scrape.PollInterval <= 0 {
		return fmt.Errorf("SCRAPE_POLL_INTERVAL must be positive")
	}
	if c.Scrape.MaxPollAttempts <= 0 {
		return fmt.Errorf("SCRAPE_MAX_POLL_ATTEMPTS must be positive")
	}
	if c.Scrape.BatchConcurrency <= 0 {
		return fmt.Errorf("SCRAPE_BATCH_CONCURRENCY must be positive")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("5s") or plain seconds ("5").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
