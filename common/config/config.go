package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	Admin     AdminConfig
	Cache     CacheConfig
	Queue     QueueConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
	BaseURL     string // Public origin used to build form links, e.g. https://specs.example.com
}

// DatabaseConfig holds record store connection settings
type DatabaseConfig struct {
	Driver      string // "postgres" or "sqlite"
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	SSLMode     string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
	SQLitePath  string
}

// RedisConfig holds Redis connection settings (rate limiting)
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// RateLimitConfig holds limits for public endpoints
type RateLimitConfig struct {
	Limit         int64
	WindowSeconds int
}

// MailConfig holds Resend API settings
type MailConfig struct {
	APIKey      string
	BaseURL     string
	SenderEmail string
	SenderName  string
	AdminEmail  string // Where submission notices go; defaults to SenderEmail
	Timeout     time.Duration
	MaxRetries  int
}

// AdminConfig holds the dashboard credentials and session settings
type AdminConfig struct {
	Username      string
	Password      string
	PasswordHash  string // bcrypt hash; takes precedence over Password
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookie  bool
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// QueueConfig holds notification queue settings
type QueueConfig struct {
	Type       string // "memory" only
	BufferSize int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables and an optional config file.
// Environment variables always win over file values.
func Load(serviceName, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName(serviceName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        v.GetInt("port"),
			Environment: v.GetString("environment"),
			LogLevel:    v.GetString("log_level"),
			LogFormat:   v.GetString("log_format"),
			BaseURL:     strings.TrimRight(v.GetString("public_base_url"), "/"),
		},
		Database: DatabaseConfig{
			Driver:      v.GetString("db_driver"),
			Host:        v.GetString("postgres_host"),
			Port:        v.GetInt("postgres_port"),
			Database:    v.GetString("postgres_db"),
			User:        v.GetString("postgres_user"),
			Password:    v.GetString("postgres_password"),
			SSLMode:     v.GetString("postgres_sslmode"),
			MaxConns:    v.GetInt("postgres_max_conns"),
			MinConns:    v.GetInt("postgres_min_conns"),
			MaxIdleTime: v.GetDuration("postgres_max_idle_time"),
			MaxLifetime: v.GetDuration("postgres_max_lifetime"),
			SQLitePath:  v.GetString("sqlite_path"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis_enabled"),
			Host:     v.GetString("redis_host"),
			Port:     v.GetInt("redis_port"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		RateLimit: RateLimitConfig{
			Limit:         v.GetInt64("rate_limit"),
			WindowSeconds: v.GetInt("rate_limit_window_seconds"),
		},
		Mail: MailConfig{
			APIKey:      v.GetString("resend_api_key"),
			BaseURL:     v.GetString("resend_base_url"),
			SenderEmail: v.GetString("sender_email"),
			SenderName:  v.GetString("sender_name"),
			AdminEmail:  v.GetString("admin_notify_email"),
			Timeout:     v.GetDuration("mail_timeout"),
			MaxRetries:  v.GetInt("mail_max_retries"),
		},
		Admin: AdminConfig{
			Username:      v.GetString("admin_username"),
			Password:      v.GetString("admin_password"),
			PasswordHash:  v.GetString("admin_password_hash"),
			SessionSecret: v.GetString("secret_key"),
			SessionTTL:    v.GetDuration("session_ttl"),
			SecureCookie:  v.GetBool("secure_cookie"),
		},
		Cache: CacheConfig{
			Enabled:    v.GetBool("cache_enabled"),
			DefaultTTL: v.GetDuration("cache_default_ttl"),
		},
		Queue: QueueConfig{
			Type:       v.GetString("queue_type"),
			BufferSize: v.GetInt("queue_buffer_size"),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: v.GetBool("enable_pprof"),
			PprofPort:   v.GetInt("pprof_port"),
		},
	}

	if cfg.Mail.AdminEmail == "" {
		cfg.Mail.AdminEmail = cfg.Mail.SenderEmail
	}

	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text") // Default to text for development
	v.SetDefault("public_base_url", "http://localhost:8080")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_db", "filter_bags")
	v.SetDefault("postgres_user", "postgres")
	v.SetDefault("postgres_password", "postgres")
	v.SetDefault("postgres_sslmode", "disable")
	v.SetDefault("postgres_max_conns", 10)
	v.SetDefault("postgres_min_conns", 1)
	v.SetDefault("postgres_max_idle_time", 30*time.Minute)
	v.SetDefault("postgres_max_lifetime", time.Hour)
	v.SetDefault("sqlite_path", "bagspec.db")

	v.SetDefault("redis_enabled", false)
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_db", 0)

	v.SetDefault("rate_limit", 30)
	v.SetDefault("rate_limit_window_seconds", 60)

	v.SetDefault("resend_base_url", "https://api.resend.com")
	v.SetDefault("sender_name", "Vaayushanti")
	v.SetDefault("mail_timeout", 10*time.Second)
	v.SetDefault("mail_max_retries", 2)

	v.SetDefault("admin_username", "admin")
	v.SetDefault("session_ttl", 12*time.Hour)
	v.SetDefault("secure_cookie", false)

	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_default_ttl", 5*time.Minute)

	v.SetDefault("queue_type", "memory")
	v.SetDefault("queue_buffer_size", 256)

	v.SetDefault("enable_pprof", false)
	v.SetDefault("pprof_port", 6060)
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}

	if c.Admin.Username == "" {
		return fmt.Errorf("admin username is required")
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if c.Admin.SessionSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("SECRET_KEY is required outside development")
		}
		c.Admin.SessionSecret = "development-only-session-secret"
	}

	if c.RateLimit.Limit <= 0 || c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate limit and window must be positive")
	}

	if c.Queue.Type != "memory" {
		return fmt.Errorf("unknown queue type: %s", c.Queue.Type)
	}

	return nil
}

// IsDevelopment reports whether the service runs in the development environment
func (c *Config) IsDevelopment() bool {
	return c.Service.Environment == "development"
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// MailEnabled reports whether outbound email can be sent
func (c *Config) MailEnabled() bool {
	return c.Mail.APIKey != "" && c.Mail.SenderEmail != ""
}
