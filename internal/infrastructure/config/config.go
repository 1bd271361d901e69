package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// loaded from environment variables, no magic defaults for required fields.
type Config struct {
	Database DatabaseConfig
	Auth     AuthConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Server   ServerConfig
	Log      LogConfig
	Matching MatchingConfig
}

// DatabaseConfig contains database connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Schema   string
}

// AuthConfig contains authentication configuration.
type AuthConfig struct {
	// JWTSecret is the supabase jwt secret for token validation
	JWTSecret string
}

// RedisConfig is optional, an empty URL disables the match cache.
type RedisConfig struct {
	URL string
}

// NATSConfig is optional, an empty URL disables partnership notifications.
type NATSConfig struct {
	URL string
}

// ServerConfig contains http server settings.
type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
	BodyLimit      string
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string
}

// MatchingConfig tunes the peer matching use cases.
type MatchingConfig struct {
	// CandidateLimit caps how many candidates are scored per request.
	CandidateLimit int

	// DisplayGoals caps how many matching goals are shown per result.
	DisplayGoals int

	// CacheTTL is how long ranked matches stay in redis.
	CacheTTL time.Duration

	// Workers is the fan-out used to score large candidate pools.
	Workers int
}

// ConnectionString returns the postgres connection string.
func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&search_path=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
		c.Schema,
	)
}

// Load reads configuration from environment variables.
// loads .env file if present, but doesn't fail if it's missing.
func Load() (*Config, error) {
	// try to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}

	authConfig, err := loadAuthConfig()
	if err != nil {
		return nil, fmt.Errorf("auth config: %w", err)
	}

	matchingConfig, err := loadMatchingConfig()
	if err != nil {
		return nil, fmt.Errorf("matching config: %w", err)
	}

	requestTimeout, err := getEnvDuration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return &Config{
		Database: dbConfig,
		Auth:     authConfig,
		Redis:    RedisConfig{URL: os.Getenv("REDIS_URL")},
		NATS:     NATSConfig{URL: os.Getenv("NATS_URL")},
		Server: ServerConfig{
			Port:           getEnvOrDefault("PORT", "8080"),
			RequestTimeout: requestTimeout,
			BodyLimit:      getEnvOrDefault("BODY_LIMIT", "64K"),
		},
		Log:      LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
		Matching: matchingConfig,
	}, nil
}

// LoadDatabase reads only the database settings and log level, for commands
// like migrations that never serve requests.
func LoadDatabase() (DatabaseConfig, LogConfig, error) {
	_ = godotenv.Load()

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return dbConfig, LogConfig{}, fmt.Errorf("database config: %w", err)
	}
	return dbConfig, LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")}, nil
}

func loadAuthConfig() (AuthConfig, error) {
	config := AuthConfig{
		JWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
	}

	if config.JWTSecret == "" {
		return config, errors.New("SUPABASE_JWT_SECRET is required")
	}

	return config, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	config := DatabaseConfig{
		Host:     getEnvOrDefault("DB_HOST", "localhost"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		SSLMode:  getEnvOrDefault("DB_SSL_MODE", "require"),
		Schema:   getEnvOrDefault("DB_SCHEMA", "peerpods"),
	}

	// required fields must be set
	if config.User == "" {
		return config, errors.New("DB_USER is required")
	}
	if config.Password == "" {
		return config, errors.New("DB_PASSWORD is required")
	}
	if config.Name == "" {
		return config, errors.New("DB_NAME is required")
	}

	return config, nil
}

func loadMatchingConfig() (MatchingConfig, error) {
	var (
		config MatchingConfig
		err    error
	)

	if config.CandidateLimit, err = getEnvInt("MATCH_CANDIDATE_LIMIT", 50); err != nil {
		return config, err
	}
	if config.DisplayGoals, err = getEnvInt("MATCH_DISPLAY_GOALS", 3); err != nil {
		return config, err
	}
	if config.CacheTTL, err = getEnvDuration("MATCH_CACHE_TTL", 5*time.Minute); err != nil {
		return config, err
	}
	if config.Workers, err = getEnvInt("MATCH_WORKERS", 4); err != nil {
		return config, err
	}

	if config.CandidateLimit < 1 {
		return config, errors.New("MATCH_CANDIDATE_LIMIT must be positive")
	}
	if config.Workers < 1 {
		return config, errors.New("MATCH_WORKERS must be positive")
	}
	if config.DisplayGoals < 0 {
		return config, errors.New("MATCH_DISPLAY_GOALS cannot be negative")
	}

	return config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
