package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"indicator-overlay/internal/indicator"
)

// Config holds all application configuration. Values come from defaults,
// an optional config.yaml and environment variables, in increasing priority.
type Config struct {
	// Listeners
	HTTPAddr    string `mapstructure:"http_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	// Overlay cache
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	CacheEnabled  bool          `mapstructure:"cache_enabled"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Indicators, e.g. "MACD:12:26:9,RSI:6,RSI:12,RSI:24,BOLL:20:2,MA:5"
	Indicators    string `mapstructure:"indicator_configs"`
	DisplayWindow int    `mapstructure:"display_window"`
}

// Load reads configuration. An explicit path must exist; with an empty path
// config.yaml is looked up in ./configs and the working directory and may be
// absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("indicator_configs", indicator.DefaultParams().String())
	v.SetDefault("display_window", 120)
}

// Params parses the configured indicator list.
func (c *Config) Params() (indicator.Params, error) {
	return indicator.ParseParams(c.Indicators)
}

// Validate checks listener addresses, cache settings and the indicator list.
func (c *Config) Validate() error {
	if err := checkAddr("http_addr", c.HTTPAddr); err != nil {
		return err
	}
	if c.MetricsAddr != "" {
		if err := checkAddr("metrics_addr", c.MetricsAddr); err != nil {
			return err
		}
	}
	if c.CacheEnabled {
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("invalid config: redis_addr is required when cache_enabled")
		}
		if c.CacheTTL <= 0 {
			return fmt.Errorf("invalid config: cache_ttl=%s must be positive", c.CacheTTL)
		}
	}
	if c.DisplayWindow < 0 {
		return fmt.Errorf("invalid config: display_window=%d must not be negative", c.DisplayWindow)
	}
	if _, err := c.Params(); err != nil {
		return fmt.Errorf("invalid config: indicator_configs: %w", err)
	}
	return nil
}

func checkAddr(key, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid config: %s=%q: %w", key, addr, err)
	}
	return nil
}
