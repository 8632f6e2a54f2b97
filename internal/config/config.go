package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Hermes     HermesConfig     `yaml:"hermes"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

// DatabaseConfig selects the store. An empty URL runs on the in-memory store.
type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

// HermesConfig points at NATS. An empty URL disables event publishing.
// Durable names the connection and prefixes the JetStream consumers.
type HermesConfig struct {
	URL     string `yaml:"url"`
	Durable string `yaml:"durable"`
}

type EvaluationConfig struct {
	WeightTolerance float64 `yaml:"weight_tolerance"`
	// ExtraCriteria extends the built-in criterion taxonomy.
	ExtraCriteria []string `yaml:"extra_criteria"`
	// DefaultWeights apply to packages created without a weight set.
	DefaultWeights map[string]float64 `yaml:"default_weights"`
	ParetoEnabled  bool               `yaml:"pareto_enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Database: DatabaseConfig{
			Migrate: true,
		},
		Hermes: HermesConfig{
			URL:     "nats://localhost:4222",
			Durable: "tender",
		},
		Evaluation: EvaluationConfig{
			WeightTolerance: 0.01,
			ParetoEnabled:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Set after parsing: yaml.v3 merges into a non-nil map.
	if cfg.Evaluation.DefaultWeights == nil {
		cfg.Evaluation.DefaultWeights = map[string]float64{
			"price":      40,
			"schedule":   20,
			"experience": 20,
			"quality":    15,
			"safety":     5,
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TENDER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("TENDER_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("TENDER_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("TENDER_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("TENDER_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("TENDER_HERMES_DURABLE"); v != "" {
		cfg.Hermes.Durable = v
	}
	if v := os.Getenv("TENDER_WEIGHT_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Evaluation.WeightTolerance = f
		}
	}
	if v := os.Getenv("TENDER_PARETO_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Evaluation.ParetoEnabled = b
		}
	}
	if v := os.Getenv("TENDER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TENDER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
