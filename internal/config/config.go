// Package config loads the daemon's TOML configuration file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/deployr/internal/logger"
	"github.com/loykin/deployr/internal/store"
)

// FileConfig represents the top-level TOML structure:
//
//	[server]
//	listen = "127.0.0.1:8190"
//	base_path = "/api"
//
//	[store]
//	type = "sqlite"
//	path = "deployr.db"
//
//	[log]
//	level = "info"
//
//	[provision]
//	python = "python3"
//
//	[supervise]
//	grace_period = "5s"
//
//	[reconcile]
//	enabled = true
//	interval = "5s"
type FileConfig struct {
	Server    ServerConfig    `toml:"server" mapstructure:"server"`
	Store     store.Config    `toml:"store" mapstructure:"store"`
	Log       logger.Config   `toml:"log" mapstructure:"log"`
	Provision ProvisionConfig `toml:"provision" mapstructure:"provision"`
	Supervise SuperviseConfig `toml:"supervise" mapstructure:"supervise"`
	Reconcile ReconcileConfig `toml:"reconcile" mapstructure:"reconcile"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type ProvisionConfig struct {
	// Python is the system interpreter used to create virtual
	// environments. Defaults to "python3" on PATH.
	Python  string        `toml:"python" mapstructure:"python"`
	Timeout time.Duration `toml:"timeout" mapstructure:"timeout"`
}

type SuperviseConfig struct {
	GracePeriod  time.Duration `toml:"grace_period" mapstructure:"grace_period"`
	SettleDelay  time.Duration `toml:"settle_delay" mapstructure:"settle_delay"`
	SampleWindow time.Duration `toml:"sample_window" mapstructure:"sample_window"`
}

type ReconcileConfig struct {
	Enabled  bool          `toml:"enabled" mapstructure:"enabled"`
	Interval time.Duration `toml:"interval" mapstructure:"interval"`
}

const (
	DefaultListen   = "127.0.0.1:8190"
	DefaultBasePath = "/api"
)

// Load reads and validates a TOML config file. Every section is optional;
// omitted sections fall back to defaults (in-memory sqlite, stderr
// logging, no reconciler).
func Load(path string) (FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return FileConfig{}, err
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return FileConfig{}, err
	}
	fc.applyDefaults()
	if err := fc.validate(); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}

// Default returns the configuration used when no file is given.
func Default() FileConfig {
	var fc FileConfig
	fc.applyDefaults()
	return fc
}

func (fc *FileConfig) applyDefaults() {
	if fc.Server.Listen == "" {
		fc.Server.Listen = DefaultListen
	}
	if fc.Server.BasePath == "" {
		fc.Server.BasePath = DefaultBasePath
	}
	if fc.Provision.Python == "" {
		fc.Provision.Python = "python3"
	}
	if fc.Reconcile.Enabled && fc.Reconcile.Interval <= 0 {
		fc.Reconcile.Interval = 5 * time.Second
	}
}

func (fc *FileConfig) validate() error {
	switch fc.Store.Type {
	case "", "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("unknown store type %q", fc.Store.Type)
	}
	if t := fc.Store.Type; (t == "postgres" || t == "postgresql") && fc.Store.DSN == "" {
		return fmt.Errorf("store type %q requires dsn", t)
	}
	if fc.Supervise.GracePeriod < 0 {
		return fmt.Errorf("supervise.grace_period must not be negative")
	}
	return nil
}
