package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/boostv/optimizer-core/internal/reducer"
	"github.com/spf13/viper"
)

// Version is the software version stamped on experiments. Set at build time
// with -ldflags "-X github.com/boostv/optimizer-core/internal/config.Version=...".
var Version = "dev"

// Config holds all configuration for the boost CLI.
type Config struct {
	DatabaseURL string  `mapstructure:"database_url"`
	RedisURL    string  `mapstructure:"redis_url"`
	ProjectRoot string  `mapstructure:"project_root"`
	MaxRating   float64 `mapstructure:"max_rating"`
	LogLevel    string  `mapstructure:"log_level"`
	LogFormat   string  `mapstructure:"log_format"`
}

// Load reads configuration from BOOST_* environment variables and, if
// present, a boost.yaml file. An empty configPath searches the working
// directory and $HOME/.boost.
func Load(configPath string) (*Config, error) {
	projectRoot, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	v := viper.New()
	v.SetDefault("database_url", "postgres://localhost:5432/boost?sslmode=disable")
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("project_root", projectRoot)
	v.SetDefault("max_rating", 5.0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("boost")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.boost")
	}

	v.SetEnvPrefix("BOOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Settings returns the values the reducer depends on.
func (c *Config) Settings() reducer.Settings {
	return reducer.Settings{MaxRating: c.MaxRating, SWVersion: Version}
}

func (c *Config) validate() error {
	if c.MaxRating <= 0 {
		return fmt.Errorf("max_rating must be positive, got %v", c.MaxRating)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}
