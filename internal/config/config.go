package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// MetricsAddr serves /metrics on a separate listener. Empty disables it.
	MetricsAddr    string   `yaml:"metrics_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	DevMode        bool     `yaml:"dev_mode"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	AdminGroupID string `yaml:"admin_group_id"`
	// JWTSecret verifies HS256 bearer tokens. Without it tokens are decoded
	// unverified and the sidecar in front of the app is trusted.
	JWTSecret       string        `yaml:"jwt_secret"`
	AdminEmails     []string      `yaml:"admin_emails"`
	SessionLifetime time.Duration `yaml:"session_lifetime"`
	Azure           AzureConfig   `yaml:"azure"`
}

type AzureConfig struct {
	Key         string `yaml:"key"`
	Secret      string `yaml:"secret"`
	CallbackURL string `yaml:"callback_url"`
	Tenant      string `yaml:"tenant"`
}

func (a AzureConfig) Enabled() bool {
	return a.Key != "" && a.Secret != ""
}

type RateLimitConfig struct {
	// RegisterRate is registrations per second per client IP.
	RegisterRate  float64 `yaml:"register_rate"`
	RegisterBurst int     `yaml:"register_burst"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Database: DatabaseConfig{
			Path: "./data/tournament.db",
		},
		Auth: AuthConfig{
			SessionLifetime: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RegisterRate:  1,
			RegisterBurst: 5,
		},
	}
}

// Load reads defaults, then the YAML file at path if it exists, then
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("DEV_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEV_MODE value: %w", err)
		}
		c.Server.DevMode = b
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("ADMIN_GROUP_ID"); v != "" {
		c.Auth.AdminGroupID = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		c.Auth.AdminEmails = splitList(v)
	}
	if v := os.Getenv("SESSION_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_LIFETIME value: %w", err)
		}
		c.Auth.SessionLifetime = d
	}
	if v := os.Getenv("AZURE_KEY"); v != "" {
		c.Auth.Azure.Key = v
	}
	if v := os.Getenv("AZURE_SECRET"); v != "" {
		c.Auth.Azure.Secret = v
	}
	if v := os.Getenv("AZURE_CALLBACK_URL"); v != "" {
		c.Auth.Azure.CallbackURL = v
	}
	if v := os.Getenv("AZURE_TENANT"); v != "" {
		c.Auth.Azure.Tenant = v
	}
	if v := os.Getenv("REGISTER_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid REGISTER_RATE value: %w", err)
		}
		c.RateLimit.RegisterRate = f
	}
	if v := os.Getenv("REGISTER_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REGISTER_BURST value: %w", err)
		}
		c.RateLimit.RegisterBurst = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path must be set")
	}
	if c.Server.ListenAddr == "" {
		return errors.New("listen address must be set")
	}
	if c.Auth.SessionLifetime <= 0 {
		return fmt.Errorf("session lifetime must be positive, got %s", c.Auth.SessionLifetime)
	}
	if c.RateLimit.RegisterRate <= 0 {
		return fmt.Errorf("register rate must be positive, got %v", c.RateLimit.RegisterRate)
	}
	if c.RateLimit.RegisterBurst < 1 {
		return fmt.Errorf("register burst must be at least 1, got %d", c.RateLimit.RegisterBurst)
	}
	if c.Auth.Azure.Enabled() && c.Auth.Azure.CallbackURL == "" {
		return errors.New("azure callback url must be set when azure login is enabled")
	}
	return nil
}

// IsAdminEmail reports whether email is on the configured admin list.
func (a AuthConfig) IsAdminEmail(email string) bool {
	for _, e := range a.AdminEmails {
		if strings.EqualFold(e, strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
