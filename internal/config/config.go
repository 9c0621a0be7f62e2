// Package config loads server and CLI settings from defaults, an optional
// YAML file, a .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	minSecretLength = 32
)

type Config struct {
	// HTTP Server
	Port int `yaml:"port"`

	// Storage
	DataBackend string `yaml:"data_backend"`
	DBPath      string `yaml:"db_path"`

	// Auth
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`

	LogLevel string `yaml:"log_level"`

	AMQP AMQPConfig `yaml:"amqp"`
}

// AMQPConfig configures the event publisher. An empty URL disables it.
type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:          8080,
		DataBackend:   BackendSQLite,
		DBPath:        "./data/settleup.db",
		TokenDuration: 24 * time.Hour,
		LogLevel:      "info",
		AMQP: AMQPConfig{
			Exchange:   "settleup",
			RoutingKey: "settlements",
		},
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it. Variables from ./.env are loaded without replacing ones
// already set in the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT '%s': must be a number", v)
		}
		c.Port = port
	}
	if v := os.Getenv("TOKEN_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOKEN_DURATION '%s': %w", v, err)
		}
		c.TokenDuration = d
	}

	setString(&c.DataBackend, "DATA_BACKEND")
	setString(&c.DBPath, "DB_PATH")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.AMQP.URL, "AMQP_URL")
	setString(&c.AMQP.Exchange, "AMQP_EXCHANGE")
	setString(&c.AMQP.RoutingKey, "AMQP_ROUTING_KEY")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}

	validBackends := []string{BackendSQLite, BackendMemory}
	if !slices.Contains(validBackends, c.DataBackend) {
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == BackendSQLite && c.DBPath == "" {
		problems = append(problems, "database path cannot be empty when using sqlite backend")
	}

	if len(c.JWTSecret) < minSecretLength {
		problems = append(problems, fmt.Sprintf("JWT secret must be at least %d characters", minSecretLength))
	}
	if c.TokenDuration <= 0 {
		problems = append(problems, fmt.Sprintf("invalid token duration %v: must be positive", c.TokenDuration))
	}

	if c.AMQP.URL != "" {
		if parsedURL, err := url.Parse(c.AMQP.URL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQP.URL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQP.Exchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
