// Package config loads the cookiesweep configuration file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyKeyword is returned when a protection keyword is empty; an
	// empty keyword would match every domain.
	ErrEmptyKeyword = zerr.New("empty protection keyword")

	// ErrNegativeInterval is returned for a negative resync interval.
	ErrNegativeInterval = zerr.New("negative resync interval")
)

// Config holds the cookiesweep configuration.
type Config struct {
	// Protected lists substrings of domains that "delete all" must never touch.
	Protected []string `yaml:"protected"`

	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`

	// ResyncInterval re-reads the whole store periodically. Zero disables it.
	ResyncInterval time.Duration `yaml:"resync_interval"`
}

// StoreConfig selects the persistent cookie store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// Dir returns the cookiesweep configuration directory.
func Dir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	return filepath.Join(configDir, "cookiesweep")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Path: filepath.Join(Dir(), "cookies.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8787",
		},
	}
}

// Load reads the configuration at path on top of the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the rest of the program cannot use.
func (c Config) Validate() error {
	for i, keyword := range c.Protected {
		if keyword == "" {
			return zerr.With(ErrEmptyKeyword, "index", i)
		}
	}
	if c.ResyncInterval < 0 {
		return zerr.With(ErrNegativeInterval, "resync_interval", c.ResyncInterval.String())
	}
	return nil
}

// Save writes the configuration to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerr.Wrap(err, "failed to create config directory")
	}

	content, err := yaml.Marshal(cfg)
	if err != nil {
		return zerr.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return zerr.Wrap(err, "failed to write config file")
	}
	return nil
}
