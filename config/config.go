package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Tokens     TokenConfig      `yaml:"tokens"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AuthConfig holds staff authentication settings. BootstrapAdmin* seed an
// initial admin account on first start when no such user exists.
type AuthConfig struct {
	JWTSecret              string `yaml:"jwt_secret"`
	TokenTTLHours          int    `yaml:"token_ttl_hours"`
	BootstrapAdminUser     string `yaml:"bootstrap_admin_user"`
	BootstrapAdminPassword string `yaml:"bootstrap_admin_password"`
}

// TokenConfig holds guest self-check-in token settings.
type TokenConfig struct {
	DefaultExpiryHours int           `yaml:"default_expiry_hours"`
	DefaultExpiry      time.Duration `yaml:"-"` // Ignored by YAML parser
	SweepSchedule      string        `yaml:"sweep_schedule"`
	Timezone           string        `yaml:"timezone"`
}

// PushConfig holds the VAPID keys for housekeeping web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret must be set")
	}
	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 12
	}

	if cfg.Tokens.DefaultExpiryHours <= 0 {
		cfg.Tokens.DefaultExpiryHours = 24
	}
	cfg.Tokens.DefaultExpiry = time.Duration(cfg.Tokens.DefaultExpiryHours) * time.Hour

	if cfg.Tokens.SweepSchedule == "" {
		cfg.Tokens.SweepSchedule = "@every 10m"
	}
	if cfg.Tokens.Timezone == "" {
		cfg.Tokens.Timezone = "Asia/Kuala_Lumpur"
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
