package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents server configuration loaded from YAML, with
// environment variables as overrides.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL string `yaml:"databaseURL"`

	JWTSecret  string `yaml:"jwtSecret"`
	SessionTTL string `yaml:"sessionTTL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`
	MinioPublicURL string `yaml:"minioPublicURL"`

	TrustForwardedHeaders bool `yaml:"trustForwardedHeaders"`

	AuthRateLimit       int    `yaml:"authRateLimit"`
	AuthRateLimitWindow string `yaml:"authRateLimitWindow"`

	KeepAliveEnabled  bool   `yaml:"keepAliveEnabled"`
	KeepAliveSchedule string `yaml:"keepAliveSchedule"`
	KeepAliveURL      string `yaml:"keepAliveURL"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *FileConfig) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("MINIO_PUBLIC_URL"); v != "" {
		cfg.MinioPublicURL = v
	}
	if v := os.Getenv("ENABLE_CRON"); v != "" {
		cfg.KeepAliveEnabled = v == "true"
	}
	if v := os.Getenv("CRON_INTERVAL"); v != "" {
		cfg.KeepAliveSchedule = v
	}
	if v := os.Getenv("API_URL"); v != "" {
		cfg.KeepAliveURL = v
	}
	if v := os.Getenv("AUTH_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuthRateLimit = n
		}
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.JWTSecret == "" {
		return errors.New("config: jwtSecret is required (set in config.yaml or JWT_SECRET)")
	}
	if cfg.MinioEndpoint == "" {
		return errors.New("config: minioEndpoint is required")
	}
	if cfg.MinioAccessKey == "" {
		return errors.New("config: minioAccessKey is required")
	}
	if cfg.MinioSecretKey == "" {
		return errors.New("config: minioSecretKey is required")
	}
	if cfg.MinioBucket == "" {
		return errors.New("config: minioBucket is required")
	}
	if cfg.KeepAliveEnabled && cfg.KeepAliveURL == "" {
		return errors.New("config: keepAliveURL is required when keep-alive is enabled")
	}
	return nil
}

// ParseSessionTTL resolves the configured session lifetime, defaulting to
// fifteen days.
func ParseSessionTTL(value string) (time.Duration, error) {
	if value == "" {
		return 15 * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse sessionTTL: %w", err)
	}
	if d <= 0 {
		return 0, errors.New("sessionTTL must be positive")
	}
	return d, nil
}

// ParseRateLimitWindow resolves the auth rate-limit window, defaulting to
// one minute.
func ParseRateLimitWindow(value string) (time.Duration, error) {
	if value == "" {
		return time.Minute, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse authRateLimitWindow: %w", err)
	}
	if d <= 0 {
		return 0, errors.New("authRateLimitWindow must be positive")
	}
	return d, nil
}
