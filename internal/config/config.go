package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"stockticker/internal/provider/sina"
	"stockticker/internal/provider/tencent"
)

// EnvPrefix prefixes every environment override, e.g. TICKER_SERVER_PORT.
const EnvPrefix = "TICKER"

type Server struct {
	Port           string        `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Feed configures one upstream quote feed.
type Feed struct {
	Enabled          bool          `mapstructure:"enabled"`
	Endpoint         string        `mapstructure:"endpoint"`
	FallbackEndpoint string        `mapstructure:"fallback_endpoint"`
	FallbackStatuses []int         `mapstructure:"fallback_statuses"`
	Referer          string        `mapstructure:"referer"`
	UserAgent        string        `mapstructure:"user_agent"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type Resolver struct {
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

type Watch struct {
	DBPath   string        `mapstructure:"db_path"`
	Interval time.Duration `mapstructure:"interval"`
}

type Log struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type Config struct {
	Server   Server   `mapstructure:"server"`
	Tencent  Feed     `mapstructure:"tencent"`
	Sina     Feed     `mapstructure:"sina"`
	Resolver Resolver `mapstructure:"resolver"`
	Watch    Watch    `mapstructure:"watch"`
	Log      Log      `mapstructure:"log"`
}

// Dir is where the watch-list database and log file live by default.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "stockticker")
	}
	return filepath.Join(home, ".config", "stockticker")
}

func Default() Config {
	dir := Dir()
	return Config{
		Server: Server{Port: "8080", RequestTimeout: 10 * time.Second},
		Tencent: Feed{
			Enabled:          true,
			Endpoint:         tencent.DefaultEndpoint,
			FallbackStatuses: []int{403},
			Timeout:          5 * time.Second,
		},
		Sina: Feed{
			Enabled:          true,
			Endpoint:         sina.DefaultEndpoint,
			FallbackEndpoint: sina.DefaultFallbackEndpoint,
			FallbackStatuses: []int{403},
			Referer:          sina.DefaultReferer,
			Timeout:          5 * time.Second,
		},
		Resolver: Resolver{AttemptTimeout: 5 * time.Second},
		Watch: Watch{
			DBPath:   filepath.Join(dir, "watchlist.db"),
			Interval: 3 * time.Second,
		},
		Log: Log{
			Level:      "info",
			Console:    true,
			FilePath:   filepath.Join(dir, "logs", "ticker.log"),
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load layers defaults, an optional config file and TICKER_* environment
// variables. When path is empty, CONFIG_FILE and then ./config.{json,yaml,toml}
// are tried; a missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Default(), fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	// PORT is what most hosting platforms inject.
	if p := os.Getenv("PORT"); p != "" {
		cfg.Server.Port = p
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)

	for name, f := range map[string]Feed{"tencent": d.Tencent, "sina": d.Sina} {
		v.SetDefault(name+".enabled", f.Enabled)
		v.SetDefault(name+".endpoint", f.Endpoint)
		v.SetDefault(name+".fallback_endpoint", f.FallbackEndpoint)
		v.SetDefault(name+".fallback_statuses", f.FallbackStatuses)
		v.SetDefault(name+".referer", f.Referer)
		v.SetDefault(name+".user_agent", f.UserAgent)
		v.SetDefault(name+".timeout", f.Timeout)
	}

	v.SetDefault("resolver.attempt_timeout", d.Resolver.AttemptTimeout)
	v.SetDefault("resolver.max_concurrency", d.Resolver.MaxConcurrency)

	v.SetDefault("watch.db_path", d.Watch.DBPath)
	v.SetDefault("watch.interval", d.Watch.Interval)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
}

// Validate checks the values Load cannot catch by type alone.
func (c Config) Validate() error {
	if !c.Tencent.Enabled && !c.Sina.Enabled {
		return errors.New("no quote provider enabled")
	}
	if c.Server.Port == "" {
		return errors.New("server.port must be set")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %s", c.Watch.Interval)
	}
	if c.Resolver.AttemptTimeout < 0 {
		return fmt.Errorf("resolver.attempt_timeout must not be negative, got %s", c.Resolver.AttemptTimeout)
	}
	if c.Resolver.MaxConcurrency < 0 {
		return fmt.Errorf("resolver.max_concurrency must not be negative, got %d", c.Resolver.MaxConcurrency)
	}
	for name, f := range map[string]Feed{"tencent": c.Tencent, "sina": c.Sina} {
		if f.Enabled && f.Endpoint == "" {
			return fmt.Errorf("%s.endpoint must be set when enabled", name)
		}
	}
	return nil
}
