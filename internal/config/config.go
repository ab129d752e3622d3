// Package config loads the service configuration from a YAML file with
// environment overrides. A local .env file is honored for development.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Listen   string         `yaml:"listen"`
	LogLevel string         `yaml:"log_level"`
	// SessionDir selects the file-backed session store when Redis is not
	// configured. Empty means sessions stay in memory.
	SessionDir string         `yaml:"session_dir"`
	Backend    BackendConfig  `yaml:"backend"`
	Redis      RedisConfig    `yaml:"redis"`
	Telegram   TelegramConfig `yaml:"telegram"`
	Security   SecurityConfig `yaml:"security"`
}

// BackendConfig points at the business-logic service.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
}

// RedisConfig configures session persistence. An empty Addr selects the
// in-memory store.
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Prefix     string        `yaml:"prefix"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	// Locking enables the distributed locker for multi-replica deployments.
	Locking bool `yaml:"locking"`
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	Token         string `yaml:"token"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// SecurityConfig hardens persisted sessions. EncryptionKey and FallbackKeys
// are base64-encoded 32-byte AES keys; MaskKeys are regexps matched against
// scratchpad keys whose values must never reach the store.
type SecurityConfig struct {
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
	MaskKeys      []string `yaml:"mask_keys"`
}

// EncryptionKeys decodes the configured AES keys. The active key is nil when
// encryption is disabled.
func (s SecurityConfig) EncryptionKeys() (active []byte, fallbacks [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = base64.StdEncoding.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("security.encryption_key is not valid base64: %w", err)
	}
	if len(active) != 32 {
		return nil, nil, fmt.Errorf("security.encryption_key must decode to 32 bytes, got %d", len(active))
	}
	for i, fk := range s.FallbackKeys {
		key, err := base64.StdEncoding.DecodeString(fk)
		if err != nil {
			return nil, nil, fmt.Errorf("security.fallback_keys[%d] is not valid base64: %w", i, err)
		}
		fallbacks = append(fallbacks, key)
	}
	return active, fallbacks, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
		},
		Redis: RedisConfig{
			Prefix: "slotbot:",
		},
	}
}

// Load reads the configuration file (if path is non-empty) and applies
// environment overrides on top. A .env file in the working directory is
// loaded first when present.
func Load(path string) (Config, error) {
	// Missing .env is fine.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.Backend.BaseURL == "" {
		return Config{}, fmt.Errorf("backend.base_url is required")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SLOTBOT_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("SLOTBOT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SLOTBOT_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("SLOTBOT_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SLOTBOT_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SLOTBOT_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("SLOTBOT_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("SLOTBOT_WEBHOOK_SECRET"); v != "" {
		cfg.Telegram.WebhookSecret = v
	}
	if v := os.Getenv("SLOTBOT_SESSION_DIR"); v != "" {
		cfg.SessionDir = v
	}
	if v := os.Getenv("SLOTBOT_ENCRYPTION_KEY"); v != "" {
		cfg.Security.EncryptionKey = v
	}
}
