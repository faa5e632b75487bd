package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Config holds every process-level setting. It is constructed once at startup
// and passed to the components that need it; there is no global settings
// object.
type Config struct {
	DatabaseConnectRetryCount int
	DatabaseConnectRetryDelay time.Duration
	DatabaseBusyTimeout       time.Duration
	DatabaseDebug             bool
	DatabaseFilePath          string
	Hostname                  string
	ServerHost                string
	ServerPort                int
	JWTSecret                 string
	TokenExpiry               time.Duration
	FirstSuperuserEmail       string
	FirstSuperuserPassword    string
}

const (
	envPrefix     = "OPENSHELF_"
	configFileENV = "OPENSHELF_CONFIG_FILE"
)

// New loads configuration from an optional YAML file (path in
// OPENSHELF_CONFIG_FILE) overlaid with OPENSHELF_-prefixed environment
// variables.
func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	if path := os.Getenv(configFileENV); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file: %s", path)
		}
	}

	err = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseDebug:             k.Bool("database_debug"),
		DatabaseFilePath:          "openshelf.db",
		Hostname:                  hostname,
		ServerHost:                "0.0.0.0",
		ServerPort:                8000,
		JWTSecret:                 k.String("jwt_secret"),
		TokenExpiry:               8 * 24 * time.Hour,
		FirstSuperuserEmail:       k.String("first_superuser_email"),
		FirstSuperuserPassword:    k.String("first_superuser_password"),
	}

	if v := k.String("database_file_path"); v != "" {
		cfg.DatabaseFilePath = v
	}
	if v := k.String("server_host"); v != "" {
		cfg.ServerHost = v
	}
	if v := k.Int("server_port"); v != 0 {
		cfg.ServerPort = v
	}
	if v := k.Duration("token_expiry"); v != 0 {
		cfg.TokenExpiry = v
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt_secret must be set")
	}

	return cfg, nil
}
