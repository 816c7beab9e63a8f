// Package config loads the server configuration from a YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/dfryer1193/newsroom/blog/domain"
	"github.com/dfryer1193/newsroom/shared/ratelimit"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig                `yaml:"server"`
	Database      DatabaseConfig              `yaml:"database"`
	Redis         RedisConfig                 `yaml:"redis"`
	RateLimits    map[string]ratelimit.Policy `yaml:"rate_limits"`
	Trigger       TriggerConfig               `yaml:"trigger"`
	Cache         CacheConfig                 `yaml:"cache"`
	Authorization AuthorizationConfig         `yaml:"authorization"`
	Logging       LoggingConfig               `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig is optional. When Addr is empty, rate limits are kept in
// process and invalidations are only logged.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// TriggerConfig controls the in-process publication trigger. It is off by
// default and has no default interval. Deployments that run publish-due from
// cron must leave it disabled.
type TriggerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type CacheConfig struct {
	ListingPath string `yaml:"listing_path"`
	Channel     string `yaml:"channel"`
}

// AuthorizationConfig lists actors by role. With both lists empty every actor
// is allowed.
type AuthorizationConfig struct {
	Editors []string `yaml:"editors"`
	Authors []string `yaml:"authors"`
}

func (a AuthorizationConfig) Enabled() bool {
	return len(a.Editors) > 0 || len(a.Authors) > 0
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var rateClasses = []string{
	domain.RateClassCreate,
	domain.RateClassUpdate,
	domain.RateClassDelete,
	domain.RateClassSchedule,
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./newsroom.db",
		},
		Cache: CacheConfig{
			ListingPath: "/blog",
			Channel:     "newsroom:invalidate",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: FormatConsole,
		},
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("NEWSROOM_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("SQLITE_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("TRIGGER_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("failed to parse TRIGGER_INTERVAL: %w", err)
		}
		c.Trigger.Interval = d
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	for class, p := range c.RateLimits {
		if !slices.Contains(rateClasses, class) {
			errs = append(errs, fmt.Errorf("rate_limits: unknown class %q", class))
			continue
		}
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("rate_limits.%s: %w", class, err))
		}
	}

	if c.Trigger.Enabled && c.Trigger.Interval <= 0 {
		errs = append(errs, errors.New("trigger.interval must be positive when the trigger is enabled"))
	}

	if c.Cache.ListingPath == "" {
		errs = append(errs, errors.New("cache.listing_path is required"))
	}
	if c.Redis.Enabled() && c.Cache.Channel == "" {
		errs = append(errs, errors.New("cache.channel is required when redis is configured"))
	}

	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != FormatConsole && c.Logging.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("logging.format must be %q or %q, got %q", FormatConsole, FormatJSON, c.Logging.Format))
	}

	return errors.Join(errs...)
}
