// Package config handles TOML configuration loading with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration for cranewatch.
type Config struct {
	Asset     AssetConfig     `toml:"asset"`
	Server    ServerConfig    `toml:"server"`
	Store     StoreConfig     `toml:"store"`
	Simulator SimulatorConfig `toml:"simulator"`
	Engine    EngineConfig    `toml:"engine"`
	Feed      FeedConfig      `toml:"feed"`
	Inventory InventoryConfig `toml:"inventory"`
	Business  BusinessConfig  `toml:"business"`
	Log       LogConfig       `toml:"log"`
}

// AssetConfig identifies the monitored machine.
type AssetConfig struct {
	ComponentID string `toml:"component_id"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// StoreConfig controls the SQLite event store.
type StoreConfig struct {
	Path string `toml:"path"`
}

// SimulatorConfig controls the telemetry simulator.
type SimulatorConfig struct {
	Interval Duration `toml:"interval"`
}

// EngineConfig controls the prescriptive-analysis engine call. An empty
// URL means the engine is unreachable and every analysis uses the local
// heuristic fallback.
type EngineConfig struct {
	URL     string   `toml:"url"`
	Timeout Duration `toml:"timeout"`
}

// FeedConfig controls optional MQTT publication of telemetry ticks.
// An empty broker disables the feed.
type FeedConfig struct {
	Broker string `toml:"broker"`
	Topic  string `toml:"topic"`
}

// InventoryConfig seeds the tracked spare-part stock.
type InventoryConfig struct {
	InitialStock    map[string]int `toml:"initial_stock"`
	RestockQuantity int            `toml:"restock_quantity"`
}

// BusinessConfig holds the static figures reported by the business metrics
// view; uptime is derived at read time, not configured.
type BusinessConfig struct {
	MaintenanceSpend       int `toml:"maintenance_spend"`
	MaintenanceBudget      int `toml:"maintenance_budget"`
	AvoidedDowntimeSavings int `toml:"avoided_downtime_savings"`
	ActiveAssets           int `toml:"active_assets"`
	TotalAssets            int `toml:"total_assets"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps time.Duration for TOML string parsing (e.g. "2s", "10s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Asset: AssetConfig{
			ComponentID: "CRANE-01",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Simulator: SimulatorConfig{
			Interval: Duration{2 * time.Second},
		},
		Engine: EngineConfig{
			Timeout: Duration{10 * time.Second},
		},
		Feed: FeedConfig{
			Topic: "crane/telemetry",
		},
		Inventory: InventoryConfig{
			InitialStock: map[string]int{
				"Main Bearing (B-54)": 1,
				"Hoist Motor":         2,
				"Hydraulic Filter":    12,
			},
			RestockQuantity: 5,
		},
		Business: BusinessConfig{
			MaintenanceSpend:       12450,
			MaintenanceBudget:      15000,
			AvoidedDowntimeSavings: 45000,
			ActiveAssets:           1,
			TotalAssets:            1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "cranewatch", "config.toml")
}

// Load reads configuration from the given path, falling back to defaults
// for any unset fields. If the file does not exist, returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// StorePath returns the configured SQLite path, or the default under the
// user data directory when unset.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "cranewatch.db"
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "cranewatch", "cranewatch.db")
}
