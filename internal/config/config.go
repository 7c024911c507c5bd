// Package config loads service configuration from defaults, a YAML file,
// LS_ORBIT_* environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/litescript/ls-orbit/internal/feed"
	"github.com/litescript/ls-orbit/internal/observability"
)

const (
	// DefaultPath is the config file read when -config is not given.
	DefaultPath = "config.yaml"

	minRefresh = 1 * time.Minute
	maxRefresh = 24 * time.Hour
)

// Config is the full service configuration.
type Config struct {
	Addr      string `yaml:"addr"`
	Debug     bool   `yaml:"debug"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	FeedURL     string        `yaml:"feed_url"`
	FeedTimeout time.Duration `yaml:"feed_timeout"`
	// RefreshInterval reloads the feed periodically. Zero disables it.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	CachePath       string        `yaml:"cache_path"`
	LoadOnStart     bool          `yaml:"load_on_start"`

	GeoEnabled bool          `yaml:"geo_enabled"`
	GeoTimeout time.Duration `yaml:"geo_timeout"`

	Tracing observability.TracingConfig `yaml:"tracing"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:        ":5000",
		LogLevel:    "info",
		LogFormat:   "text",
		FeedURL:     feed.DefaultURL,
		FeedTimeout: feed.DefaultTimeout,
		LoadOnStart: true,
		GeoEnabled:  true,
		GeoTimeout:  3 * time.Second,
		Tracing:     observability.DefaultTracingConfig(),
	}
}

// Load returns the defaults overlaid with the file at path and then the
// environment. A missing or unreadable file is reported in the error but the
// returned Config is still usable.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	var fileErr error
	if path != "" {
		fileErr = cfg.loadFile(path)
	}
	envErr := cfg.applyEnv(getenv)

	return cfg, errors.Join(fileErr, envErr)
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	// Decode over a copy so a bad file leaves c untouched.
	next := *c
	if err := yaml.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	*c = next
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	var errs []error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("LS_ORBIT_ADDR", &c.Addr)
	boolean("LS_ORBIT_DEBUG", &c.Debug)
	str("LS_ORBIT_LOG_LEVEL", &c.LogLevel)
	str("LS_ORBIT_LOG_FORMAT", &c.LogFormat)
	str("LS_ORBIT_FEED_URL", &c.FeedURL)
	duration("LS_ORBIT_FEED_TIMEOUT", &c.FeedTimeout)
	duration("LS_ORBIT_REFRESH_INTERVAL", &c.RefreshInterval)
	str("LS_ORBIT_CACHE_PATH", &c.CachePath)
	boolean("LS_ORBIT_LOAD_ON_START", &c.LoadOnStart)
	boolean("LS_ORBIT_GEO_ENABLED", &c.GeoEnabled)
	duration("LS_ORBIT_GEO_TIMEOUT", &c.GeoTimeout)

	c.Tracing = c.Tracing.ApplyEnv(getenv)

	return errors.Join(errs...)
}

// RegisterFlags defines the configuration flags on fs and returns the
// -config path. Flag defaults are informational; only flags set on the
// command line override file and environment values (see ApplyFlags).
func RegisterFlags(fs *flag.FlagSet) *string {
	d := Default()
	path := fs.String("config", DefaultPath, "Path to YAML config file")
	fs.String("addr", d.Addr, "HTTP listen address")
	fs.Bool("debug", d.Debug, "Enable debug logging")
	fs.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("log-format", d.LogFormat, "Log format (text, json)")
	fs.String("feed-url", d.FeedURL, "OEM feed URL")
	fs.Duration("feed-timeout", d.FeedTimeout, "Feed HTTP timeout")
	fs.Duration("refresh", d.RefreshInterval, "Feed reload interval (0 disables)")
	fs.String("cache-path", d.CachePath, "bbolt feed cache file (empty disables)")
	fs.Bool("load-on-start", d.LoadOnStart, "Load the feed at startup")
	fs.Bool("geo", d.GeoEnabled, "Enable reverse geocoding")
	fs.Duration("geo-timeout", d.GeoTimeout, "Reverse geocoding timeout")
	return path
}

// ApplyFlags copies every explicitly set flag registered by RegisterFlags.
func (c *Config) ApplyFlags(fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		getter, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		v := getter.Get()
		switch f.Name {
		case "addr":
			c.Addr = v.(string)
		case "debug":
			c.Debug = v.(bool)
		case "log-level":
			c.LogLevel = v.(string)
		case "log-format":
			c.LogFormat = v.(string)
		case "feed-url":
			c.FeedURL = v.(string)
		case "feed-timeout":
			c.FeedTimeout = v.(time.Duration)
		case "refresh":
			c.RefreshInterval = v.(time.Duration)
		case "cache-path":
			c.CachePath = v.(string)
		case "load-on-start":
			c.LoadOnStart = v.(bool)
		case "geo":
			c.GeoEnabled = v.(bool)
		case "geo-timeout":
			c.GeoTimeout = v.(time.Duration)
		}
	})
}

// Validate normalizes the configuration and reports values it cannot fix.
// A non-zero refresh interval is clamped to [1m, 24h]; Debug forces the
// debug log level.
func (c *Config) Validate() error {
	if c.RefreshInterval < 0 {
		c.RefreshInterval = 0
	} else if c.RefreshInterval > 0 && c.RefreshInterval < minRefresh {
		c.RefreshInterval = minRefresh
	} else if c.RefreshInterval > maxRefresh {
		c.RefreshInterval = maxRefresh
	}

	if c.Debug {
		c.LogLevel = "debug"
	}

	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.FeedURL == "" {
		errs = append(errs, errors.New("feed_url must not be empty"))
	}
	if c.FeedTimeout <= 0 {
		errs = append(errs, fmt.Errorf("feed_timeout must be positive, got %s", c.FeedTimeout))
	}
	if c.GeoTimeout < 0 {
		errs = append(errs, fmt.Errorf("geo_timeout must not be negative, got %s", c.GeoTimeout))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", c.Tracing.SampleRatio))
	}
	return errors.Join(errs...)
}
