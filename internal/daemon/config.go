// Package daemon wires the store, reward engine, and HTTP server together
// and runs them as a long-lived process.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config is the daemon configuration, loaded from config.toml with
// environment variable overrides.
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Wallet  WalletConfig  `toml:"wallet"`
	Metrics MetricsConfig `toml:"metrics"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host string `toml:"host" env:"STUDYTIME_HOST"`
	Port int    `toml:"port" env:"STUDYTIME_PORT"`
}

// StorageConfig controls where the SQLite database lives.
type StorageConfig struct {
	Dir string `toml:"dir" env:"STUDYTIME_DATA_DIR"`
}

// WalletConfig controls wallet housekeeping.
type WalletConfig struct {
	// DailyReset enables zeroing non-carry-over wallets at local midnight.
	DailyReset bool `toml:"daily_reset" env:"STUDYTIME_DAILY_RESET"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" env:"STUDYTIME_METRICS"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		API:     APIConfig{Host: "127.0.0.1", Port: 8310},
		Storage: StorageConfig{Dir: defaultDataDir()},
		Wallet:  WalletConfig{DailyReset: true},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads the config file at path (missing file is fine — defaults
// apply), then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env overrides: %w", err)
	}
	return cfg, nil
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".studytime", "config.toml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".studytime")
}

// Addr returns the host:port the API listens on.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
