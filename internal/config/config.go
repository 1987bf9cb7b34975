// Package config loads flowboard settings.
//
// Values are layered, lowest first: built-in defaults, the TOML config file
// (.flowboard/config.toml unless overridden), environment variables prefixed
// FLOWBOARD_ (a .env file in the working directory is loaded into the
// environment first), and finally command-line flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mschirtzinger/flowboard/internal/remote"
)

const (
	// DirName is the per-project state directory.
	DirName = ".flowboard"

	// FileName is the config file inside DirName.
	FileName = "config.toml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "FLOWBOARD"

	// CacheFile is the local cache database inside the data directory.
	CacheFile = "cache.db"
)

// Config is the resolved configuration.
type Config struct {
	DataDir   string             `mapstructure:"data_dir"`
	Server    ServerConfig       `mapstructure:"server"`
	Cloud     remote.CloudConfig `mapstructure:"cloud"`
	HTTP      HTTPConfig         `mapstructure:"http"`
	Log       LogConfig          `mapstructure:"log"`
	Dashboard DashboardConfig    `mapstructure:"dashboard"`
	DocServer DocServerConfig    `mapstructure:"docserver"`

	// File is the config file that was read, empty if none.
	File string `mapstructure:"-"`
}

// ServerConfig points at the document server.
type ServerConfig struct {
	URL string `mapstructure:"url"`
}

// HTTPConfig tunes the remote transport.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig controls the log file.
type LogConfig struct {
	File string `mapstructure:"file"`
}

// DashboardConfig configures `fb dashboard`.
type DashboardConfig struct {
	Port int `mapstructure:"port"`
}

// DocServerConfig configures `fb server`.
type DocServerConfig struct {
	Port int    `mapstructure:"port"`
	File string `mapstructure:"file"`
}

// CachePath returns the local cache database path.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, CacheFile)
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		DataDir:   DirName,
		HTTP:      HTTPConfig{Timeout: remote.DefaultTimeout},
		Dashboard: DashboardConfig{Port: 8090},
		DocServer: DocServerConfig{Port: 3000, File: "project-data.json"},
	}
}

// Options control Load.
type Options struct {
	// Dir is the project directory holding .flowboard/ and .env
	// (default: the working directory).
	Dir string

	// File overrides the config file path.
	File string

	// Flags, when set, are bound per Bindings.
	Flags *pflag.FlagSet

	// Bindings maps config keys to flag names, e.g. "server.url" to "server".
	Bindings map[string]string
}

// DefaultPath returns the config file path under dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, DirName, FileName)
}

// Load resolves the configuration. A missing config file or .env is not an
// error; an unreadable one is.
func Load(opts Options) (*Config, *viper.Viper, error) {
	dir := opts.Dir
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return nil, nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := opts.File
	if path == "" {
		path = DefaultPath(dir)
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		if opts.File != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		path = ""
	}

	if opts.Flags != nil {
		for key, name := range opts.Bindings {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	cfg, err := decode(v, dir)
	if err != nil {
		return nil, nil, err
	}
	cfg.File = path
	return cfg, v, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("server.url", d.Server.URL)
	v.SetDefault("cloud.type", d.Cloud.Type)
	v.SetDefault("cloud.bin_id", d.Cloud.BinID)
	v.SetDefault("cloud.api_key", d.Cloud.APIKey)
	v.SetDefault("cloud.url", d.Cloud.URL)
	v.SetDefault("cloud.base_url", d.Cloud.BaseURL)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("dashboard.port", d.Dashboard.Port)
	v.SetDefault("docserver.port", d.DocServer.Port)
	v.SetDefault("docserver.file", d.DocServer.File)
}

func decode(v *viper.Viper, dir string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.HTTP.Timeout <= 0 {
		return nil, fmt.Errorf("http.timeout must be positive, got %s", cfg.HTTP.Timeout)
	}
	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(dir, cfg.DataDir)
	}
	if cfg.DocServer.File != "" && !filepath.IsAbs(cfg.DocServer.File) {
		cfg.DocServer.File = filepath.Join(dir, cfg.DocServer.File)
	}
	if !cfg.Cloud.IsZero() {
		if err := cfg.Cloud.Validate(); err != nil {
			return nil, fmt.Errorf("invalid cloud section: %w", err)
		}
	}
	return &cfg, nil
}

// Watch re-decodes the configuration whenever the config file read by Load
// changes and passes the result to fn. A file that no longer decodes is
// reported through fn's error argument. It is a no-op when Load found no
// config file.
func Watch(v *viper.Viper, dir string, fn func(cfg *Config, e fsnotify.Event, err error)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v, dir)
		if cfg != nil {
			cfg.File = v.ConfigFileUsed()
		}
		fn(cfg, e, err)
	})
	v.WatchConfig()
}
