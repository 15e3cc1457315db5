package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service  ServiceConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gallery  GalleryConfig
	Auth     AuthConfig
	Cache    CacheConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings (audit trail)
type DatabaseConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// GalleryConfig holds upload and processing limits
type GalleryConfig struct {
	MaxFileSize       int64         // bytes
	SessionQuota      int64         // uploads allowed per session window
	SessionWindow     time.Duration // rolling upload window
	ProcessTimeout    time.Duration // bound on image processing per upload
	PublicCacheTTL    time.Duration // memory cache TTL for the public listing
	ResponsiveWidths  []int
	DefaultPublicSize int
}

// AuthConfig holds admin authentication settings
type AuthConfig struct {
	AdminToken      string // secret, injected via env, never read from files
	RequestLimit    int64  // admin requests per IP window
	RequestWindow   time.Duration
	FailedLimit     int64 // failed attempts before lockout
	LockoutWindow   time.Duration
	CSRFTokenExpiry time.Duration
}

// CacheConfig holds in-process cache settings
type CacheConfig struct {
	Enabled bool
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Database: DatabaseConfig{
			Enabled:     getEnvBool("AUDIT_TRAIL_ENABLED", true),
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "gallery"),
			User:        getEnv("POSTGRES_USER", "gallery"),
			Password:    getEnv("POSTGRES_PASSWORD", "gallery"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Gallery: GalleryConfig{
			MaxFileSize:       getEnvInt64("GALLERY_MAX_FILE_SIZE", 10*1024*1024),
			SessionQuota:      getEnvInt64("GALLERY_SESSION_QUOTA", 10),
			SessionWindow:     getEnvDuration("GALLERY_SESSION_WINDOW", 1*time.Hour),
			ProcessTimeout:    getEnvDuration("GALLERY_PROCESS_TIMEOUT", 30*time.Second),
			PublicCacheTTL:    getEnvDuration("GALLERY_PUBLIC_CACHE_TTL", 60*time.Second),
			ResponsiveWidths:  []int{320, 768, 1200},
			DefaultPublicSize: getEnvInt("GALLERY_PUBLIC_DEFAULT_LIMIT", 12),
		},
		Auth: AuthConfig{
			AdminToken:      os.Getenv("GALLERY_ADMIN_TOKEN"),
			RequestLimit:    getEnvInt64("ADMIN_REQUEST_LIMIT", 50),
			RequestWindow:   getEnvDuration("ADMIN_REQUEST_WINDOW", 15*time.Minute),
			FailedLimit:     getEnvInt64("ADMIN_FAILED_LIMIT", 5),
			LockoutWindow:   getEnvDuration("ADMIN_LOCKOUT_WINDOW", 30*time.Minute),
			CSRFTokenExpiry: getEnvDuration("CSRF_TOKEN_EXPIRY", 1*time.Hour),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Auth.AdminToken == "" {
		return fmt.Errorf("GALLERY_ADMIN_TOKEN is required")
	}

	if c.Gallery.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns the Redis host:port address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
