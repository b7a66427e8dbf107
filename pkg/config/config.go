// Package config loads modcat settings from a YAML file, the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MODCAT_PARSE_WORKERS.
const EnvPrefix = "MODCAT"

// Config holds the complete application configuration.
type Config struct {
	Log   LogConfig   `mapstructure:"log"`
	Parse ParseConfig `mapstructure:"parse"`
	Store StoreConfig `mapstructure:"store"`
	Watch WatchConfig `mapstructure:"watch"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// ParseConfig holds defaults for the parse command.
type ParseConfig struct {
	Workers  int    `mapstructure:"workers"`
	Strict   bool   `mapstructure:"strict"`
	Format   string `mapstructure:"format"` // json, summary
	Profiles string `mapstructure:"profiles"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	SQLite string `mapstructure:"sqlite"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Parse: ParseConfig{
			Workers: 0,
			Format:  "json",
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}

// Load reads configuration. Values come, lowest precedence first, from the
// defaults, the YAML file at configPath (or ./modcat.yaml when configPath is
// empty and the file exists), and MODCAT_* environment variables. A .env file
// in the working directory is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("modcat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}
	if c.Parse.Format != "json" && c.Parse.Format != "summary" {
		return fmt.Errorf("invalid parse format: %s (must be json or summary)", c.Parse.Format)
	}
	if c.Parse.Workers < 0 {
		return fmt.Errorf("invalid worker count: %d", c.Parse.Workers)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("invalid watch debounce: %s", c.Watch.Debounce)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("parse.workers", defaults.Parse.Workers)
	v.SetDefault("parse.strict", defaults.Parse.Strict)
	v.SetDefault("parse.format", defaults.Parse.Format)
	v.SetDefault("parse.profiles", defaults.Parse.Profiles)
	v.SetDefault("store.sqlite", defaults.Store.SQLite)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
}
