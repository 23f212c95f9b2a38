// Package config loads server configuration from YAML with SONAR_*
// environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Board    BoardConfig    `mapstructure:"board"`
}

// ServerConfig configures the HTTP/websocket listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig configures the postgres match store. When disabled, matches
// live in process memory only.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BoardConfig selects the board every new match snapshots: a predefined map
// file when path is set, otherwise a randomly generated one.
type BoardConfig struct {
	Path          string `mapstructure:"path"`
	Width         int    `mapstructure:"width"`
	Height        int    `mapstructure:"height"`
	Islands       int    `mapstructure:"islands"`
	MinIslandSize int    `mapstructure:"min_island_size"`
	MaxIslandSize int    `mapstructure:"max_island_size"`
	Seed          int64  `mapstructure:"seed"`
}

// Load reads configuration from the given file (optional) and the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SONAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("board.path", "")
	v.SetDefault("board.width", 15)
	v.SetDefault("board.height", 15)
	v.SetDefault("board.islands", 6)
	v.SetDefault("board.min_island_size", 1)
	v.SetDefault("board.max_island_size", 8)
	v.SetDefault("board.seed", 0)
}
