package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the companion's full runtime configuration. Values are layered:
// defaults, then the YAML config file, then VETCONTROL_* environment variables.
type Config struct {
	Listen   string        `koanf:"listen"`
	LogLevel string        `koanf:"log_level"`
	DBPath   string        `koanf:"db_path"`
	Backend  BackendConfig `koanf:"backend"`
	Notify   NotifyConfig  `koanf:"notify"`
	Sync     SyncConfig    `koanf:"sync"`
	Stripe   StripeConfig  `koanf:"stripe"`
	Backup   BackupConfig  `koanf:"backup"`
}

// BackendConfig points at the clinic's REST API.
type BackendConfig struct {
	BaseURL  string `koanf:"base_url"`
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
	Timeout  int    `koanf:"timeout_seconds"`
}

// NotifyConfig holds Web Push delivery settings.
type NotifyConfig struct {
	VAPIDPublicKey  string `koanf:"vapid_public_key"`
	VAPIDPrivateKey string `koanf:"vapid_private_key"`
	Subscriber      string `koanf:"subscriber"`
	// Timezone overrides the process-local timezone for due-time resolution.
	// Empty means time.Local.
	Timezone string `koanf:"timezone"`
}

type SyncConfig struct {
	IntervalMinutes int `koanf:"interval_minutes"`
}

type StripeConfig struct {
	SecretKey      string `koanf:"secret_key"`
	PublishableKey string `koanf:"publishable_key"`
}

type BackupConfig struct {
	Endpoint  string `koanf:"endpoint"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"listen":                  "127.0.0.1:8464",
		"log_level":               "info",
		"db_path":                 "vetcontrol.db",
		"backend.timeout_seconds": 10,
		"notify.subscriber":       "mailto:noreply@vetcontrol.app",
		"sync.interval_minutes":   15,
	}
}

// Load reads configuration from defaults, an optional YAML file, and the
// environment. Passing an empty configPath skips the file layer.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		configPath = expandPath(configPath)
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	// VETCONTROL_BACKEND__BASE_URL -> backend.base_url
	if err := k.Load(env.Provider("VETCONTROL_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "VETCONTROL_")
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.DBPath = expandPath(cfg.DBPath)
	return &cfg, nil
}

// Validate checks that the required backend settings are present.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is required (set VETCONTROL_BACKEND__BASE_URL or add to config file)")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout_seconds must be positive")
	}
	if c.Sync.IntervalMinutes <= 0 {
		return fmt.Errorf("sync interval_minutes must be positive")
	}
	return nil
}

// PushConfigured reports whether Web Push delivery can be enabled.
func (c *Config) PushConfigured() bool {
	return c.Notify.VAPIDPublicKey != "" && c.Notify.VAPIDPrivateKey != ""
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
