// Package config loads schemadsl settings from schemadsl.yaml, SCHEMADSL_*
// environment variables and defaults, in that order of precedence after flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable, e.g. SCHEMADSL_LOG_LEVEL.
const EnvPrefix = "SCHEMADSL"

// FileName is the config file looked up in . and $HOME/.schemadsl.
const FileName = "schemadsl.yaml"

// Config is the complete configuration.
type Config struct {
	Parse  ParseConfig  `yaml:"parse" mapstructure:"parse"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
}

// ParseConfig holds the default parse options.
type ParseConfig struct {
	Strict           bool          `yaml:"strict" mapstructure:"strict"`
	IgnoreErrors     bool          `yaml:"ignore_errors" mapstructure:"ignore_errors"`
	PreserveComments bool          `yaml:"preserve_comments" mapstructure:"preserve_comments"`
	MaxErrors        int           `yaml:"max_errors" mapstructure:"max_errors"`
	Timeout          time.Duration `yaml:"-" mapstructure:"timeout"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RateLimit       int           `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per minute per IP, 0 disables
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"-" mapstructure:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Parse: ParseConfig{
			MaxErrors: 100,
			Timeout:   30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			MaxBodyBytes:    1 << 20,
			RateLimit:       120,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// SetDefaults registers every key with its default so environment variables
// can override keys that no config file mentions.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("parse.strict", d.Parse.Strict)
	v.SetDefault("parse.ignore_errors", d.Parse.IgnoreErrors)
	v.SetDefault("parse.preserve_comments", d.Parse.PreserveComments)
	v.SetDefault("parse.max_errors", d.Parse.MaxErrors)
	v.SetDefault("parse.timeout", d.Parse.Timeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
}

// Init points v at the config file and the environment. An empty file means
// schemadsl.yaml in the working directory or $HOME/.schemadsl.
func Init(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.schemadsl")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// Load reads the configuration. A missing default config file is not an
// error; a missing explicit file is.
func Load(v *viper.Viper, file string) (*Config, error) {
	Init(v, file)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// MarshalYAML writes the timeout as a duration string.
func (p ParseConfig) MarshalYAML() (any, error) {
	type plain ParseConfig
	return struct {
		plain   `yaml:",inline"`
		Timeout string `yaml:"timeout"`
	}{plain(p), p.Timeout.String()}, nil
}

// MarshalYAML writes the shutdown timeout as a duration string.
func (s ServerConfig) MarshalYAML() (any, error) {
	type plain ServerConfig
	return struct {
		plain           `yaml:",inline"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	}{plain(s), s.ShutdownTimeout.String()}, nil
}

// Encode renders cfg as YAML.
func Encode(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

const header = "# schemadsl configuration\n# Every key can be overridden with SCHEMADSL_<SECTION>_<KEY>, e.g. SCHEMADSL_LOG_LEVEL=debug\n\n"

// WriteDefault writes the default configuration to path.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	data, err := Encode(Default())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
