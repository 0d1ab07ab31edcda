// Package config provides unified configuration loading for the OCR service.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the OCR service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Tools         ToolsConfig         `yaml:"tools"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
}

// StorageConfig holds filesystem layout settings.
type StorageConfig struct {
	TempDir   string `yaml:"temp_dir"`   // uploads and page images; empty means os.TempDir
	SplitsDir string `yaml:"splits_dir"` // produced PDF chunks, served under /downloads
	PublicDir string `yaml:"public_dir"` // static frontend assets
}

// ToolsConfig holds external tool settings.
type ToolsConfig struct {
	Pdftoppm      string `yaml:"pdftoppm"`
	Tesseract     string `yaml:"tesseract"`
	Pdftk         string `yaml:"pdftk"`
	OCRLanguage   string `yaml:"ocr_language"`
	TargetChunkKB int    `yaml:"target_chunk_kb"`
}

// SessionsConfig holds progress store settings.
type SessionsConfig struct {
	Driver string        `yaml:"driver"` // memory or redis
	TTL    time.Duration `yaml:"ttl"`    // redis only; 0 means no expiry
	Redis  RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      5 * time.Minute,
			WriteTimeout:     5 * time.Minute,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
			MaxUploadBytes:   256 << 20,
		},
		Storage: StorageConfig{
			TempDir:   "",
			SplitsDir: "./assets/conversions/splits",
			PublicDir: "./public",
		},
		Tools: ToolsConfig{
			Pdftoppm:      "pdftoppm",
			Tesseract:     "tesseract",
			Pdftk:         "pdftk",
			OCRLanguage:   "san",
			TargetChunkKB: 500,
		},
		Sessions: SessionsConfig{
			Driver: "memory",
			TTL:    24 * time.Hour,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
				Prefix:   "ocr:",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Sessions.Driver != "memory" && c.Sessions.Driver != "redis" {
		return fmt.Errorf("invalid sessions driver: %s", c.Sessions.Driver)
	}

	if c.Tools.TargetChunkKB < 1 {
		return fmt.Errorf("target_chunk_kb must be positive, got %d", c.Tools.TargetChunkKB)
	}

	if c.Tools.OCRLanguage == "" {
		return fmt.Errorf("ocr_language must not be empty")
	}

	return nil
}

// TempDir returns the configured temp directory, falling back to the OS default.
func (c *Config) TempDir() string {
	if c.Storage.TempDir != "" {
		return c.Storage.TempDir
	}
	return os.TempDir()
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("OCR_TEMP_DIR"); v != "" {
		cfg.Storage.TempDir = v
	}

	if v := os.Getenv("OCR_SPLITS_DIR"); v != "" {
		cfg.Storage.SplitsDir = v
	}

	if v := os.Getenv("OCR_PUBLIC_DIR"); v != "" {
		cfg.Storage.PublicDir = v
	}

	if v := os.Getenv("OCR_LANGUAGE"); v != "" {
		cfg.Tools.OCRLanguage = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Sessions.Driver = "redis"
		cfg.Sessions.Redis.Addr = trimScheme(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

func trimScheme(s, scheme string) string {
	if len(s) >= len(scheme) && s[:len(scheme)] == scheme {
		return s[len(scheme):]
	}
	return s
}
