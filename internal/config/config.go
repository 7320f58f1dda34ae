// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration wraps every error returned by LoadConfig.
var ErrConfiguration = errors.New("configuration error")

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 5000
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultEventsQueue = "messages_events"
	DefaultIngestQueue = "messages_ingest"
	DefaultWorkers     = 2
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port" validate:"min=1,max=65535"`
	} `yaml:"server"`

	Database struct {
		URL string `yaml:"url" validate:"required"`
	} `yaml:"database"`

	RabbitMQ struct {
		URL         string `yaml:"url"`
		EventsQueue string `yaml:"events_queue" validate:"required_with=URL"`
		IngestQueue string `yaml:"ingest_queue"`
	} `yaml:"rabbitmq"`

	Workers int `yaml:"workers" validate:"min=0,max=256"`

	Log struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=json text"`
	} `yaml:"log"`
}

// environment holds the variables that override the file. Zero values leave
// the file (or default) value in place.
type environment struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
	Host        string `envconfig:"HOST"`
	Port        int    `envconfig:"PORT"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	LogFormat   string `envconfig:"LOG_FORMAT"`
	RabbitMQURL string `envconfig:"RABBITMQ_URL"`
	Workers     *int   `envconfig:"WORKERS"`
}

// Default returns a Config with every optional value filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Host = DefaultHost
	cfg.Server.Port = DefaultPort
	cfg.RabbitMQ.EventsQueue = DefaultEventsQueue
	cfg.RabbitMQ.IngestQueue = DefaultIngestQueue
	cfg.Workers = DefaultWorkers
	cfg.Log.Level = DefaultLogLevel
	cfg.Log.Format = DefaultLogFormat
	return cfg
}

// LoadConfig reads the optional YAML file at path, applies environment
// overrides and validates the result. A missing file is not an error; a
// missing database URL is.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: failed to unmarshal config: %v", ErrConfiguration, err)
			}
		}
	}

	if err := applyEnvironment(cfg); err != nil {
		return nil, err
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("%w: DATABASE_URL must be set. Did you forget to provision a database?", ErrConfiguration)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cfg, nil
}

func applyEnvironment(cfg *Config) error {
	var env environment
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("%w: failed to read environment: %v", ErrConfiguration, err)
	}

	if env.DatabaseURL != "" {
		cfg.Database.URL = env.DatabaseURL
	}
	if env.Host != "" {
		cfg.Server.Host = env.Host
	}
	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	if env.RabbitMQURL != "" {
		cfg.RabbitMQ.URL = env.RabbitMQURL
	}
	if env.Workers != nil {
		cfg.Workers = *env.Workers
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MessagingEnabled reports whether a broker is configured.
func (c *Config) MessagingEnabled() bool {
	return c.RabbitMQ.URL != ""
}
