package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration.
type Config struct {
	Port             int      `toml:"port"`
	DBPath           string   `toml:"db_path"`
	APIBaseURL       string   `toml:"api_base_url"`
	APIToken         string   `toml:"api_token"`
	ProgressInterval Duration `toml:"progress_interval"`
	PruneDelay       Duration `toml:"prune_delay"`
	LogLevel         string   `toml:"log_level"`
	LogFormat        string   `toml:"log_format"`
}

// Duration is a time.Duration read from TOML strings like "3s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

const DefaultAPIBaseURL = "https://heshel-be-python.onrender.com/api"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:             8080,
		DBPath:           DefaultDBPath(),
		APIBaseURL:       DefaultAPIBaseURL,
		ProgressInterval: Duration{3 * time.Second},
		PruneDelay:       Duration{4 * time.Second},
		LogLevel:         "info",
		LogFormat:        "auto",
	}
}

// DefaultDBPath returns the default database path using XDG_CACHE_HOME.
func DefaultDBPath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "recipequeue", "history.db")
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "recipequeue", "config.toml")
}

// Load reads the TOML file at path over the defaults. A missing file is not an
// error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	ApplyEnv(cfg)
	return cfg, cfg.Validate()
}

// ApplyEnv applies RECIPEQUEUE_* environment overrides.
func ApplyEnv(cfg *Config) {
	if port := os.Getenv("RECIPEQUEUE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if db := os.Getenv("RECIPEQUEUE_DB"); db != "" {
		cfg.DBPath = db
	}
	if base := os.Getenv("RECIPEQUEUE_API_URL"); base != "" {
		cfg.APIBaseURL = base
	}
	if token := os.Getenv("RECIPEQUEUE_API_TOKEN"); token != "" {
		cfg.APIToken = token
	}
	if level := os.Getenv("RECIPEQUEUE_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.APIBaseURL == "" {
		return errors.New("api_base_url is required")
	}
	if c.ProgressInterval.Duration <= 0 {
		return errors.New("progress_interval must be positive")
	}
	if c.PruneDelay.Duration <= 0 {
		return errors.New("prune_delay must be positive")
	}
	return nil
}
