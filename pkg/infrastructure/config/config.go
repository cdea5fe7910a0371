package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/infrastructure/logging"
)

// Config is the planner's file configuration.
type Config struct {
	Planning PlanningConfig `yaml:"planning"`
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PlanningConfig holds planning and execution behavior switches.
type PlanningConfig struct {
	// CascadeDueDates offsets sub-assembly due dates by their lead times.
	CascadeDueDates bool `yaml:"cascade_due_dates"`

	// StrictInventory refuses reservations that would drive stock negative.
	StrictInventory bool `yaml:"strict_inventory"`

	// DefaultMakeOrBuy resolves products with a make_or_buy policy:
	// "make" or "buy".
	DefaultMakeOrBuy string `yaml:"default_make_or_buy"`

	// MaxLevels bounds planning depth. Zero means the built-in default.
	MaxLevels int `yaml:"max_levels"`
}

// DatabaseConfig holds the Postgres connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// KafkaConfig holds the event stream destination. Empty brokers disable
// publishing.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	AddSource bool   `yaml:"add_source"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Planning: PlanningConfig{
			CascadeDueDates:  true,
			StrictInventory:  true,
			DefaultMakeOrBuy: "make",
		},
		Kafka: KafkaConfig{
			Topic: "planner.events",
		},
		Logging: LoggingConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load reads a YAML config file over the defaults. The DATABASE_DSN and
// KAFKA_BROKERS environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = []string{brokers}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPolicy maps the configured default sourcing policy.
func (c *Config) DefaultPolicy() entities.MakeOrBuy {
	if c.Planning.DefaultMakeOrBuy == "buy" {
		return entities.MakeOrBuyBuy
	}
	return entities.MakeOrBuyMake
}

// LoggerConfig maps the logging section.
func (c *Config) LoggerConfig(serviceName string) *logging.Config {
	lc := logging.DefaultConfig(serviceName)
	if c.Logging.Level != "" {
		lc.Level = logging.Level(c.Logging.Level)
	}
	lc.AddSource = c.Logging.AddSource
	return lc
}

func (c *Config) validate() error {
	switch c.Planning.DefaultMakeOrBuy {
	case "", "make", "buy":
	default:
		return fmt.Errorf("invalid default_make_or_buy %q: expected make or buy", c.Planning.DefaultMakeOrBuy)
	}
	if c.Planning.MaxLevels < 0 {
		return fmt.Errorf("max_levels cannot be negative")
	}
	return nil
}
