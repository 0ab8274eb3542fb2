// Package config loads diagsync settings from defaults, .diagsync.yaml,
// DIAGSYNC_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"diagsync/internal/reconcile"
)

// ErrInvalid reports a setting outside its allowed values.
var ErrInvalid = errors.New("config: invalid setting")

// StoreConfig selects where cells are persisted.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// TraceConfig mirrors the --trace* flags.
type TraceConfig struct {
	Output    string        `mapstructure:"output"`
	Level     string        `mapstructure:"level"`
	Mode      string        `mapstructure:"mode"`
	RingSize  int           `mapstructure:"ring_size"`
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

// Config holds all runtime configuration.
type Config struct {
	PreferBuildAlways     bool        `mapstructure:"prefer_build_always"`
	PreferBuildOverLive   bool        `mapstructure:"prefer_build_over_live"`
	PreferLiveOnOpenFiles bool        `mapstructure:"prefer_live_on_open_files"`
	Manifest              string      `mapstructure:"manifest"`
	Jobs                  int         `mapstructure:"jobs"`
	Store                 StoreConfig `mapstructure:"store"`
	Trace                 TraceConfig `mapstructure:"trace"`
}

// Store backends.
const (
	BackendMemory = "memory"
	BackendDisk   = "disk"
	BackendSQLite = "sqlite"
)

// boolDefaults are the options the reconciliation controller reads.
var boolDefaults = map[string]bool{
	reconcile.OptPreferBuildAlways:     false,
	reconcile.OptPreferBuildOverLive:   true,
	reconcile.OptPreferLiveOnOpenFiles: true,
}

// New returns a viper instance with defaults and DIAGSYNC_* environment
// lookup. Nested keys map to env names with underscores, so store.backend
// reads DIAGSYNC_STORE_BACKEND.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("DIAGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers a default for every key.
func SetDefaults(v *viper.Viper) {
	for k, d := range boolDefaults {
		v.SetDefault(k, d)
	}
	v.SetDefault("manifest", "diagsync.toml")
	v.SetDefault("jobs", 1)
	v.SetDefault("store.backend", BackendDisk)
	v.SetDefault("store.path", "")
	v.SetDefault("trace.output", "")
	v.SetDefault("trace.level", "off")
	v.SetDefault("trace.mode", "stream")
	v.SetDefault("trace.ring_size", 4096)
	v.SetDefault("trace.heartbeat", time.Duration(0))
}

// ReadFile loads cfgFile, or .diagsync.yaml from the working or home
// directory when cfgFile is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".diagsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", describe(cfgFile), err)
	}
	return nil
}

func describe(cfgFile string) string {
	if cfgFile == "" {
		return ".diagsync.yaml"
	}
	return cfgFile
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have a closed set of choices.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendDisk, BackendSQLite:
	default:
		return fmt.Errorf("%w: store.backend %q (expected: memory|disk|sqlite)", ErrInvalid, c.Store.Backend)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("%w: jobs must be at least 1, got %d", ErrInvalid, c.Jobs)
	}
	if c.Trace.RingSize < 1 {
		return fmt.Errorf("%w: trace.ring_size must be positive, got %d", ErrInvalid, c.Trace.RingSize)
	}
	return nil
}

// Options serves the controller's boolean options from viper. It reads live
// values, so a config reload is seen by the next event.
type Options struct {
	v *viper.Viper
}

// NewOptions wraps v, which must have had SetDefaults applied.
func NewOptions(v *viper.Viper) *Options {
	return &Options{v: v}
}

// Bool returns the value of key. Keys without a registered default are a
// programming error and panic.
func (o *Options) Bool(key string) bool {
	if _, ok := boolDefaults[key]; !ok {
		panic(fmt.Sprintf("config: option %q has no registered default", key))
	}
	return o.v.GetBool(key)
}
