// Package config loads the configuration of the dynsql tool.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/canonical/dynsql/internal/logger"
	"github.com/canonical/dynsql/internal/parse"
)

// Config holds all configuration of the tool.
type Config struct {
	Parser   ParserConfig   `mapstructure:"parser" yaml:"parser"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

type ParserConfig struct {
	// Level is "base" or "more".
	Level    string `mapstructure:"level" yaml:"level"`
	MaxDepth int    `mapstructure:"max_depth" yaml:"max_depth"`
	Fallback bool   `mapstructure:"fallback" yaml:"fallback"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Parser: ParserConfig{
			Level:    "more",
			MaxDepth: parse.DefaultMaxDepth,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    ":memory:",
		},
	}
}

// Load reads the configuration from path, or from dynsql.yaml in the usual
// places when path is empty, with DYNSQL_ environment variables taking
// precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	cfg := Default()
	v.SetDefault("parser.level", cfg.Parser.Level)
	v.SetDefault("parser.max_depth", cfg.Parser.MaxDepth)
	v.SetDefault("parser.fallback", cfg.Parser.Fallback)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.output", cfg.Log.Output)
	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.dsn", cfg.Database.DSN)

	v.SetEnvPrefix("DYNSQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "cannot read config file")
		}
	} else {
		v.SetConfigName("dynsql")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.dynsql")
		v.AddConfigPath("/etc/dynsql")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "cannot read config file")
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if _, err := parse.ParseLevel(c.Parser.Level); err != nil {
		return errors.Wrap(err, "invalid parser.level")
	}
	if c.Parser.MaxDepth <= 0 {
		return errors.Newf("parser.max_depth must be positive, got %d", c.Parser.MaxDepth)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "invalid log.level")
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "text", "json":
	default:
		return errors.Newf("invalid log.format %q", c.Log.Format)
	}
	if c.Database.Driver == "" {
		return errors.New("database.driver must be set")
	}
	return nil
}

// ParseConfig returns the parser settings as a parse.Config.
func (c *Config) ParseConfig() parse.Config {
	level, _ := parse.ParseLevel(c.Parser.Level)
	return parse.Config{
		Level:    level,
		MaxDepth: c.Parser.MaxDepth,
		Fallback: c.Parser.Fallback,
	}
}

// WriteDefault writes the default configuration to path as YAML. An existing
// file is not overwritten.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.Wrap(err, "cannot encode default config")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", path)
	}
	defer f.Close()
	if _, err := f.Write(append([]byte("# dynsql configuration\n"), data...)); err != nil {
		return errors.Wrapf(err, "cannot write %s", path)
	}
	return nil
}
