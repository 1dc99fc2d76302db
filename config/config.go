package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
// Sources, lowest precedence first: defaults, YAML file (CONFIG_FILE), .env, environment.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Auth     AuthConfig     `yaml:"auth"`
	Events   EventsConfig   `yaml:"events"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string `yaml:"port" env:"PORT"`
	Mode               string `yaml:"mode" env:"GIN_MODE"`
	ReadTimeout        int    `yaml:"read_timeout_sec" env:"READ_TIMEOUT_SEC"`
	WriteTimeout       int    `yaml:"write_timeout_sec" env:"WRITE_TIMEOUT_SEC"`
	ShutdownTimeout    int    `yaml:"shutdown_timeout_sec" env:"SHUTDOWN_TIMEOUT_SEC"`
	CORSAllowedOrigins string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"` // comma-separated, or "*"
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"` // used as-is when set
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     string `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE"`
	MaxConns int32  `yaml:"max_conns" env:"DB_MAX_CONNS"`
	Migrate  bool   `yaml:"migrate" env:"DB_MIGRATE"`
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis
// and sessions are revoked in process memory instead.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// JWTConfig holds session token settings.
type JWTConfig struct {
	Secret      string `yaml:"secret" env:"JWT_SECRET"`
	Issuer      string `yaml:"issuer" env:"JWT_ISSUER"`
	ExpireHours int    `yaml:"expire_hours" env:"JWT_EXPIRE_HOURS"`
}

// AuthConfig holds password hashing settings.
type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

// EventsConfig holds event workflow settings.
type EventsConfig struct {
	// RequireApproval hides unapproved events from students and admins and
	// creates non super-admin events as pending.
	RequireApproval bool `yaml:"require_approval" env:"EVENTS_REQUIRE_APPROVAL"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Expire returns the session lifetime.
func (c JWTConfig) Expire() time.Duration {
	return time.Duration(c.ExpireHours) * time.Hour
}

// AllowedOrigins splits CORSAllowedOrigins into trimmed entries.
func (c ServerConfig) AllowedOrigins() []string {
	return splitTrim(c.CORSAllowedOrigins, ",")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               "8080",
			Mode:               "debug",
			ReadTimeout:        30,
			WriteTimeout:       30,
			ShutdownTimeout:    15,
			CORSAllowedOrigins: "http://localhost:3000",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "eventmanager",
			SSLMode:  "disable",
			MaxConns: 10,
			Migrate:  true,
		},
		Redis: RedisConfig{},
		JWT: JWTConfig{
			Secret:      "change-me-in-production",
			Issuer:      "campus-events",
			ExpireHours: 24,
		},
		Auth:   AuthConfig{BcryptCost: 10},
		Events: EventsConfig{RequireApproval: true},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, an optional .env file and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate checks settings that would otherwise fail at runtime.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT secret is required")
	}
	if c.Server.Mode == "release" && c.JWT.Secret == Default().JWT.Secret {
		return errors.New("JWT secret must be changed in release mode")
	}
	if c.JWT.ExpireHours <= 0 {
		return errors.New("JWT expire hours must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost %d out of range", c.Auth.BcryptCost)
	}
	return nil
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
