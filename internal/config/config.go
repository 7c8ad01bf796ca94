// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Draft    DraftConfig    `toml:"draft"`
	Provider ProviderConfig `toml:"provider"`
	Store    StoreConfig    `toml:"store"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AddrOrDefault returns the configured listen address or ":8650" if unset.
func (s ServerConfig) AddrOrDefault() string {
	if s.Addr == "" {
		return ":8650"
	}
	return s.Addr
}

// DraftConfig holds draft engine settings.
type DraftConfig struct {
	// Columns is the wrap width. The engine accepts only [10,120] and
	// falls back to its default of 26 otherwise, so no validation here.
	Columns int `toml:"columns"`
}

// ProviderConfig holds LLM provider settings. An empty endpoint means no
// provider is configured and the server falls back to a mock.
type ProviderConfig struct {
	Endpoint    string  `toml:"endpoint"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
}

// StoreConfig holds transcript store settings.
type StoreConfig struct {
	Path string `toml:"path"`
}

// PathOrDefault returns the configured database path, or one under the
// data directory.
func (s StoreConfig) PathOrDefault() (string, error) {
	if s.Path != "" {
		return s.Path, nil
	}
	dir, err := EnsureDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "drafter.db"), nil
}

// Load reads configuration from a TOML file and applies environment
// variable overrides. An empty path yields the built-in defaults; a
// non-empty path must name an existing file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	if c.Provider.Endpoint != "" {
		if err := validateEndpoint(c.Provider.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("provider.endpoint=%q is invalid: %v", c.Provider.Endpoint, err))
		}
		if c.Provider.Model == "" {
			errs = append(errs, errors.New("provider.model is required when an endpoint is configured"))
		}
	}

	if c.Provider.Temperature < 0.0 || c.Provider.Temperature > 2.0 {
		errs = append(errs, fmt.Errorf("provider.temperature=%v must be between 0.0 and 2.0", c.Provider.Temperature))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateEndpoint(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("missing scheme or host")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	for _, setter := range []struct {
		env   string
		apply func(string)
	}{
		{"DRAFTER_ADDR", func(v string) {
			if v != "" {
				cfg.Server.Addr = v
			}
		}},
		{"DRAFTER_ENDPOINT", func(v string) {
			if v != "" {
				cfg.Provider.Endpoint = v
			}
		}},
		{"DRAFTER_API_KEY", func(v string) {
			if v != "" {
				cfg.Provider.APIKey = v
			}
		}},
		{"DRAFTER_MODEL", func(v string) {
			if v != "" {
				cfg.Provider.Model = v
			}
		}},
	} {
		setter.apply(os.Getenv(setter.env))
	}
}

// DataDir returns the path to the drafter data directory (~/.config/drafter).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "drafter"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}
