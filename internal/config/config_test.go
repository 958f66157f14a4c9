package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "refresher.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sampleConfig = `
run:
  region: EMEA
  report_source: SPDST
  data_source: BMT
  exclude: true
db:
  url: postgresql://audit:audit@db:5432/audit
engine:
  cluster_identifier: reports-cluster
  database: warehouse
  secret_arn: arn:aws:secretsmanager:eu-west-1:123:secret:reports
  aws_region: eu-west-1
  poll_interval_sec: 60
runner:
  attempts: 5
  retry_delay_sec: 30
trigger:
  schedule: "0 2 * * *"
  timezone: Europe/London
  cutoff_window_min: 120
`

func TestLoad_ParsesYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Run.Region != "EMEA" || cfg.Run.ReportSource != "SPDST" {
		t.Errorf("unexpected run identity: %+v", cfg.Run)
	}
	if !cfg.Run.Exclude {
		t.Error("exclude flag should be set")
	}
	if cfg.Engine.ClusterIdentifier != "reports-cluster" {
		t.Errorf("unexpected cluster: %q", cfg.Engine.ClusterIdentifier)
	}
	if cfg.Engine.PollInterval() != 60*time.Second {
		t.Errorf("unexpected poll interval: %s", cfg.Engine.PollInterval())
	}
	if cfg.Runner.Attempts != 5 {
		t.Errorf("unexpected attempts: %d", cfg.Runner.Attempts)
	}
	if cfg.Runner.RetryDelay() != 30*time.Second {
		t.Errorf("unexpected retry delay: %s", cfg.Runner.RetryDelay())
	}
	if cfg.Trigger.CutoffWindow() != 2*time.Hour {
		t.Errorf("unexpected cutoff window: %s", cfg.Trigger.CutoffWindow())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_URL", "postgresql://override:x@other:5432/audit")
	t.Setenv("REFRESHER_REGION", "APJ")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DB.URL != "postgresql://override:x@other:5432/audit" {
		t.Errorf("DB_URL should override file value, got %q", cfg.DB.URL)
	}
	if cfg.Run.Region != "APJ" {
		t.Errorf("REFRESHER_REGION should override file value, got %q", cfg.Run.Region)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/refresher.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_EmptyPathUsesEnvOnly(t *testing.T) {
	t.Setenv("REFRESHER_CONFIG", "")
	t.Setenv("REFRESHER_REGION", "AMS")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Run.Region != "AMS" {
		t.Errorf("expected region from env, got %q", cfg.Run.Region)
	}
}

func TestTriggerConfig_TickDefault(t *testing.T) {
	var c TriggerConfig
	if c.Tick() != 60*time.Second {
		t.Errorf("expected 60s default tick, got %s", c.Tick())
	}
	c.TickSec = 5
	if c.Tick() != 5*time.Second {
		t.Errorf("expected 5s tick, got %s", c.Tick())
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("sample config should be valid: %v", err)
	}

	cfg.Engine.SecretARN = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing secret ARN should fail validation")
	}

	cfg.Run.Region = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing region should fail validation")
	}
}
