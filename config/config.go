// Package config loads and validates the application configuration.
// Files may be YAML or JSON; broker and stream credentials come from
// the environment, the config only names the variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/scalper/market"
	"github.com/rustyeddy/scalper/trade"
)

// Config is the complete application configuration.
type Config struct {
	Stream  StreamConfig  `json:"stream" yaml:"stream"`
	Broker  BrokerConfig  `json:"broker" yaml:"broker"`
	Trading TradingConfig `json:"trading" yaml:"trading"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// StreamConfig locates the quote websocket.
type StreamConfig struct {
	URL       string `json:"url" yaml:"url"`
	APIKeyEnv string `json:"api_key_env" yaml:"api_key_env"`
}

// BrokerConfig selects the trading endpoint and names the credential
// variables.
type BrokerConfig struct {
	Paper        bool   `json:"paper" yaml:"paper"`
	KeyIDEnv     string `json:"key_id_env" yaml:"key_id_env"`
	SecretKeyEnv string `json:"secret_key_env" yaml:"secret_key_env"`
}

// OffsetsConfig is the distance from entry to the two targets and the
// stop, in price units.
type OffsetsConfig struct {
	TP1  float64 `json:"tp1" yaml:"tp1"`
	TP2  float64 `json:"tp2" yaml:"tp2"`
	Stop float64 `json:"stop" yaml:"stop"`
}

// TradingConfig contains position sizing and exit parameters.
type TradingConfig struct {
	PositionSize int           `json:"position_size" yaml:"position_size"`
	WashGuard    string        `json:"wash_guard" yaml:"wash_guard"` // e.g. "5s"
	Offsets      OffsetsConfig `json:"offsets" yaml:"offsets"`
	OneMinute    OffsetsConfig `json:"one_minute_offsets" yaml:"one_minute_offsets"`
}

// Settings converts the trading section into manager settings.
func (tc TradingConfig) Settings() (trade.Settings, error) {
	guard, err := time.ParseDuration(tc.WashGuard)
	if err != nil {
		return trade.Settings{}, fmt.Errorf("parse wash_guard: %w", err)
	}
	return trade.Settings{
		PositionSize: tc.PositionSize,
		WashGuard:    guard,
		Default:      trade.Offsets(tc.Offsets),
		PerEntry: map[market.Timeframe]trade.Offsets{
			market.TF1m: trade.Offsets(tc.OneMinute),
		},
	}, nil
}

// JournalConfig selects the journal backend.
type JournalConfig struct {
	Type           string `json:"type" yaml:"type"` // "csv" or "sqlite"
	TradesFile     string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	ExecutionsFile string `json:"executions_file,omitempty" yaml:"executions_file,omitempty"`
	DBPath         string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LogConfig configures the structured log and its rotation.
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`
	Output     string `json:"output" yaml:"output"` // "console", "file" or "both"
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSize    int    `json:"max_size,omitempty" yaml:"max_size,omitempty"` // megabytes
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAge     int    `json:"max_age,omitempty" yaml:"max_age,omitempty"` // days
	Compress   bool   `json:"compress,omitempty" yaml:"compress,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on
// content, YAML tried first).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on
// extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if (len(path) > 5 && path[len(path)-5:] == ".yaml") || (len(path) > 4 && path[len(path)-4:] == ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Stream.URL == "" {
		return fmt.Errorf("stream.url is required")
	}
	if c.Stream.APIKeyEnv == "" {
		return fmt.Errorf("stream.api_key_env is required")
	}
	if c.Broker.KeyIDEnv == "" || c.Broker.SecretKeyEnv == "" {
		return fmt.Errorf("broker.key_id_env and broker.secret_key_env are required")
	}
	if c.Trading.PositionSize <= 0 {
		return fmt.Errorf("trading.position_size must be positive")
	}
	if _, err := time.ParseDuration(c.Trading.WashGuard); err != nil {
		return fmt.Errorf("trading.wash_guard: %w", err)
	}
	for name, off := range map[string]OffsetsConfig{
		"trading.offsets":            c.Trading.Offsets,
		"trading.one_minute_offsets": c.Trading.OneMinute,
	} {
		if off.TP1 <= 0 || off.TP2 <= 0 || off.Stop <= 0 {
			return fmt.Errorf("%s must all be positive", name)
		}
		if off.TP2 <= off.TP1 {
			return fmt.Errorf("%s: tp2 must be above tp1", name)
		}
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.ExecutionsFile == "" {
			return fmt.Errorf("journal trades_file and executions_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	return nil
}

// Default returns a configuration with the production constants.
func Default() *Config {
	return &Config{
		Stream: StreamConfig{
			URL:       "wss://socket.polygon.io/stocks",
			APIKeyEnv: "POLYGON_API_KEY",
		},
		Broker: BrokerConfig{
			Paper:        true,
			KeyIDEnv:     "APCA_API_KEY_ID",
			SecretKeyEnv: "APCA_API_SECRET_KEY",
		},
		Trading: TradingConfig{
			PositionSize: 1000,
			WashGuard:    "5s",
			Offsets:      OffsetsConfig{TP1: 0.15, TP2: 0.30, Stop: 0.10},
			OneMinute:    OffsetsConfig{TP1: 0.10, TP2: 0.30, Stop: 0.10},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./scalper.sqlite",
		},
		Log: LogConfig{
			Level:      "info",
			Output:     "both",
			File:       "./scalper.log",
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		},
	}
}
