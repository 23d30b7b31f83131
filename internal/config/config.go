// Package config loads the application configuration: connections, lock,
// publication and logging. Trading parameters live in configuration versions,
// not here.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"capital-allocator/internal/logging"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the application configuration.
type Config struct {
	Store string `yaml:"store" default:"postgres" validate:"oneof=postgres memory"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	ClickHouse struct {
		DSN string `yaml:"dsn" validate:"omitempty,startswith=clickhouse://"`
	} `yaml:"clickhouse"`

	Redis struct {
		Addr      string        `yaml:"addr"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db" validate:"gte=0"`
		LockTTL   time.Duration `yaml:"lock_ttl" default:"30m" validate:"gt=0"`
		KeyPrefix string        `yaml:"key_prefix" default:"capital-allocator:lock:"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"daily-signals" validate:"required"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s" validate:"gt=0"`
	} `yaml:"kafka"`

	Metrics struct {
		TextfilePath string `yaml:"textfile_path"`
	} `yaml:"metrics"`

	Reports struct {
		Dir string `yaml:"dir" default:"reports" validate:"required"`
	} `yaml:"reports"`

	Log logging.Config `yaml:"log"`
}

var validate = validator.New()

// Default returns a configuration with defaults applied and nothing else set.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML file, fills defaults, applies environment overrides and
// validates. An empty path starts from defaults.
func Load(path string) (*Config, error) {
	return LoadWith(path, nil)
}

// LoadWith is Load with override applied after the environment and before
// validation. Commands use it to apply their flags.
func LoadWith(path string, override func(*Config)) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	c.applyEnv()
	if override != nil {
		override(c)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// applyEnv overrides file values with CA_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("CA_STORE"); v != "" {
		c.Store = v
	}
	if v := os.Getenv("CA_POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("CA_CLICKHOUSE_DSN"); v != "" {
		c.ClickHouse.DSN = v
	}
	if v := os.Getenv("CA_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CA_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Store == StorePostgres && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required when store is postgres")
	}
	return nil
}
