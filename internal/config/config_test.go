package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

var envVars = []string{
	"TENDER_PORT", "TENDER_METRICS_PORT", "TENDER_ADMIN_TOKEN",
	"TENDER_DATABASE_URL", "TENDER_HERMES_URL", "TENDER_WEIGHT_TOLERANCE",
	"TENDER_PARETO_ENABLED", "TENDER_LOG_LEVEL", "TENDER_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Database.URL != "" {
		t.Errorf("expected no database by default, got %s", cfg.Database.URL)
	}
	if !cfg.Database.Migrate {
		t.Error("expected migrate enabled by default")
	}
	if cfg.Hermes.URL != "nats://localhost:4222" {
		t.Errorf("expected nats URL, got %s", cfg.Hermes.URL)
	}
	if cfg.Hermes.Durable != "tender" {
		t.Errorf("expected durable 'tender', got %s", cfg.Hermes.Durable)
	}
	if cfg.Evaluation.WeightTolerance != 0.01 {
		t.Errorf("expected tolerance 0.01, got %f", cfg.Evaluation.WeightTolerance)
	}
	if !cfg.Evaluation.ParetoEnabled {
		t.Error("expected pareto_enabled=true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got '%s'", cfg.Logging.Format)
	}

	var weightSum float64
	for _, w := range cfg.Evaluation.DefaultWeights {
		weightSum += w
	}
	if math.Abs(weightSum-100) > 0.001 {
		t.Errorf("default weights sum to %f, expected 100", weightSum)
	}
	if cfg.Evaluation.DefaultWeights["price"] != 40 {
		t.Errorf("expected price weight 40, got %f", cfg.Evaluation.DefaultWeights["price"])
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TENDER_PORT", "9000")
	t.Setenv("TENDER_METRICS_PORT", "9001")
	t.Setenv("TENDER_ADMIN_TOKEN", "secret-token")
	t.Setenv("TENDER_DATABASE_URL", "postgres://localhost/tender_test")
	t.Setenv("TENDER_HERMES_URL", "nats://nats:4222")
	t.Setenv("TENDER_WEIGHT_TOLERANCE", "0.5")
	t.Setenv("TENDER_PARETO_ENABLED", "false")
	t.Setenv("TENDER_HERMES_DURABLE", "tender-eu")
	t.Setenv("TENDER_LOG_LEVEL", "debug")
	t.Setenv("TENDER_LOG_FORMAT", "text")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token 'secret-token', got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Database.URL != "postgres://localhost/tender_test" {
		t.Errorf("expected database URL, got '%s'", cfg.Database.URL)
	}
	if cfg.Hermes.URL != "nats://nats:4222" {
		t.Errorf("expected hermes URL, got '%s'", cfg.Hermes.URL)
	}
	if cfg.Hermes.Durable != "tender-eu" {
		t.Errorf("expected durable 'tender-eu', got '%s'", cfg.Hermes.Durable)
	}
	if cfg.Evaluation.WeightTolerance != 0.5 {
		t.Errorf("expected tolerance 0.5, got %f", cfg.Evaluation.WeightTolerance)
	}
	if cfg.Evaluation.ParetoEnabled {
		t.Error("expected pareto disabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format 'text', got '%s'", cfg.Logging.Format)
	}
}

func TestLoadInvalidEnvIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("TENDER_PORT", "not-a-port")
	t.Setenv("TENDER_PARETO_ENABLED", "maybe")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8700 {
		t.Errorf("expected default port on bad value, got %d", cfg.Server.Port)
	}
	if !cfg.Evaluation.ParetoEnabled {
		t.Error("expected default pareto on bad value")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tender.yaml")
	data := `
server:
  port: 8800
evaluation:
  weight_tolerance: 0.001
  extra_criteria: [warranty]
  default_weights:
    price: 70
    warranty: 30
logging:
  format: text
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8800 {
		t.Errorf("expected port 8800, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected default metrics port kept, got %d", cfg.Server.MetricsPort)
	}
	if len(cfg.Evaluation.ExtraCriteria) != 1 || cfg.Evaluation.ExtraCriteria[0] != "warranty" {
		t.Errorf("unexpected extra criteria %v", cfg.Evaluation.ExtraCriteria)
	}
	if cfg.Evaluation.DefaultWeights["warranty"] != 30 {
		t.Errorf("expected warranty weight 30, got %v", cfg.Evaluation.DefaultWeights)
	}
	if _, ok := cfg.Evaluation.DefaultWeights["schedule"]; ok {
		t.Error("file weights should replace the defaults, not merge with them")
	}
	if !cfg.Evaluation.ParetoEnabled {
		t.Error("expected pareto default kept")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
