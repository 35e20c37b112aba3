package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var (
	ErrUnknownEngine   = errors.New("engine kind must be \"http\" or \"sftp\"")
	ErrInvalidPort     = errors.New("server port must be between 1 and 65535")
	ErrMissingSFTPAddr = errors.New("sftp engine requires an address")
	ErrMissingSFTPUser = errors.New("sftp engine requires a user")
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Engine EngineConfig `mapstructure:"engine"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// EngineConfig selects and configures the transport engine.
type EngineConfig struct {
	Kind string `mapstructure:"kind"`
	// AppRoot is the directory "~/" file references resolve against.
	AppRoot string     `mapstructure:"app_root"`
	HTTP    HTTPConfig `mapstructure:"http"`
	SFTP    SFTPConfig `mapstructure:"sftp"`
}

type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type SFTPConfig struct {
	Addr     string `mapstructure:"addr"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// Load reads configuration from the given file (optional), the working
// directory and UPLOADHUB_* environment variables, in that order of
// precedence from lowest to highest.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 1234)
	v.SetDefault("engine.kind", "http")
	v.SetDefault("engine.app_root", ".")
	v.SetDefault("engine.http.timeout_seconds", 0)

	v.SetEnvPrefix("UPLOADHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("uploadhub")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	switch c.Engine.Kind {
	case "http":
	case "sftp":
		if c.Engine.SFTP.Addr == "" {
			return ErrMissingSFTPAddr
		}
		if c.Engine.SFTP.User == "" {
			return ErrMissingSFTPUser
		}
	default:
		return ErrUnknownEngine
	}
	return nil
}
