package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Links  LinksConfig
	App    AppConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" default:"8080"`
	Host            string        `envconfig:"SERVER_HOST" default:"127.0.0.1"`
	BaseURL         string        `envconfig:"SERVER_BASE_URL" default:"http://localhost:8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// StoreConfig selects and configures the persistent store.
type StoreConfig struct {
	Driver           string `envconfig:"STORE_DRIVER" default:"file"`
	FilePath         string `envconfig:"STORE_FILE_PATH" default:"shortlinks.json"`
	SQLiteDSN        string `envconfig:"STORE_SQLITE_DSN" default:"shortlinks.db"`
	PostgresDSN      string `envconfig:"STORE_POSTGRES_DSN"`
	PostgresMaxConns int32  `envconfig:"STORE_POSTGRES_MAX_CONNS" default:"4"`
	RedisAddr        string `envconfig:"STORE_REDIS_ADDR" default:"localhost:6379"`
	RedisDB          int    `envconfig:"STORE_REDIS_DB" default:"0"`
	Key              string `envconfig:"STORE_KEY" default:"shortenedUrls"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("store key cannot be empty")
	}

	switch c.Driver {
	case DriverMemory:
	case DriverFile:
		if c.FilePath == "" {
			return fmt.Errorf("file path is required for the file driver")
		}
	case DriverSQLite:
		if c.SQLiteDSN == "" {
			return fmt.Errorf("sqlite DSN is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN is required for the postgres driver")
		}
		if c.PostgresMaxConns <= 0 {
			return fmt.Errorf("postgres max connections must be positive")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis driver")
		}
		if c.RedisDB < 0 {
			return fmt.Errorf("redis db cannot be negative")
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be one of: memory, file, sqlite, postgres, redis)", c.Driver)
	}
	return nil
}

// LinksConfig holds link creation and resolution settings.
type LinksConfig struct {
	CodeLength             int           `envconfig:"LINKS_CODE_LENGTH" default:"6"`
	MaxCodeAttempts        int           `envconfig:"LINKS_MAX_CODE_ATTEMPTS" default:"5"`
	DefaultLifetimeMinutes int           `envconfig:"LINKS_DEFAULT_LIFETIME_MINUTES" default:"30"`
	MaxLifetimeMinutes     int           `envconfig:"LINKS_MAX_LIFETIME_MINUTES" default:"43200"`
	RedirectDelay          time.Duration `envconfig:"LINKS_REDIRECT_DELAY" default:"1s"`
	IDVersion              int           `envconfig:"LINKS_ID_VERSION" default:"7"` // UUID version of link ids: 4 or 7
}

// Validate validates the links configuration.
func (c *LinksConfig) Validate() error {
	if c.CodeLength <= 0 {
		return fmt.Errorf("code length must be positive")
	}
	if c.MaxCodeAttempts <= 0 {
		return fmt.Errorf("max code attempts must be positive")
	}
	if c.MaxLifetimeMinutes <= 0 {
		return fmt.Errorf("max lifetime must be positive")
	}
	if c.DefaultLifetimeMinutes <= 0 || c.DefaultLifetimeMinutes > c.MaxLifetimeMinutes {
		return fmt.Errorf("default lifetime (%d) must be between 1 and max lifetime (%d)", c.DefaultLifetimeMinutes, c.MaxLifetimeMinutes)
	}
	if c.RedirectDelay < 0 {
		return fmt.Errorf("redirect delay cannot be negative")
	}
	if c.IDVersion != 4 && c.IDVersion != 7 {
		return fmt.Errorf("id version must be 4 or 7, got %d", c.IDVersion)
	}
	return nil
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"` // development, staging, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// Load loads configuration from environment variables only.
// (.env loading happens in internal/app, not here.)
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name     string
		target   any
		validate func() error
	}{
		{"Server", &cfg.Server, cfg.Server.Validate},
		{"Store", &cfg.Store, cfg.Store.Validate},
		{"Links", &cfg.Links, cfg.Links.Validate},
		{"App", &cfg.App, cfg.App.Validate},
	}

	for _, s := range sections {
		if err := envconfig.Process("", s.target); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}
