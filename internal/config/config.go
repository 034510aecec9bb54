// Package config loads build settings from flags, SHARDS_* environment
// variables, .env and .shards.yaml, in that order of precedence.
package config

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"shards/internal/errutil"
	"shards/internal/store"
	"shards/util"
)

const (
	EnvPrefix = "SHARDS"
	FileName  = ".shards"

	DefaultDest        = "dist"
	DefaultConcurrency = 16
	DefaultCacheSize   = 4096
	DefaultLogLevel    = "info"
)

type Config struct {
	Root        string   `mapstructure:"root"`
	Entry       string   `mapstructure:"entry"`
	Dest        string   `mapstructure:"dest"`
	Concurrency int      `mapstructure:"concurrency"`
	CacheSize   int      `mapstructure:"cache_size"`
	DBPath      string   `mapstructure:"db_path"`
	DryRun      bool     `mapstructure:"dry_run"`
	Debug       bool     `mapstructure:"debug"`
	LogLevel    string   `mapstructure:"log_level"`
	LogFile     string   `mapstructure:"log_file"`
	Include     []string `mapstructure:"include"`
}

// New returns a viper instance with defaults and environment binding set up.
// Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	root, err := util.FindGitRoot("")
	if err != nil {
		root, _ = os.Getwd()
	}
	v.SetDefault("root", root)
	v.SetDefault("entry", "")
	v.SetDefault("dest", DefaultDest)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("cache_size", DefaultCacheSize)
	v.SetDefault("db_path", store.GetDatabasePath())
	v.SetDefault("dry_run", false)
	v.SetDefault("debug", false)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("include", []string{})
	return v
}

// Load reads .shards.yaml from the project root (or the working directory),
// decodes the merged settings and validates them. Relative entry and dest
// paths are resolved against the project root.
func Load(v *viper.Viper) (*Config, error) {
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(v.GetString("root"))
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Mark(errors.Wrap(err, "failed to read config file"), errutil.ErrInvalidConfig)
		}
	} else {
		log.Debug("Loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to decode config"), errutil.ErrInvalidConfig)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "invalid root %q", c.Root), errutil.ErrInvalidConfig)
	}
	c.Root = root
	if c.Entry != "" && !filepath.IsAbs(c.Entry) {
		c.Entry = filepath.Join(c.Root, c.Entry)
	}
	if c.Dest != "" && !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(c.Root, c.Dest)
	}
	return nil
}

// Validate checks the settings every command relies on. A missing entry is
// not an error here; commands that need one check it with RequireEntry.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.Mark(errors.Newf(format, args...), errutil.ErrInvalidConfig)
	}
	if c.Concurrency < 1 {
		return invalid("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.CacheSize < 1 {
		return invalid("cache_size must be at least 1, got %d", c.CacheSize)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.WithHint(
			invalid("unknown log level %q", c.LogLevel),
			"Valid levels: debug, info, warn, error, fatal",
		)
	}
	if c.Dest == "" && !c.DryRun {
		return invalid("dest is required unless dry_run is set")
	}
	return nil
}

// RequireEntry fails when no entry document is configured.
func (c *Config) RequireEntry() error {
	if c.Entry == "" {
		return errors.WithHint(
			errors.Mark(errors.New("no entry document configured"), errutil.ErrInvalidConfig),
			"Pass --entry, set SHARDS_ENTRY or add `entry:` to .shards.yaml",
		)
	}
	return nil
}
