package unit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/app/bootstrap"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := bootstrap.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.HTTPPort != 8080 || cfg.GRPCPort != 9090 {
		t.Fatalf("default ports %d/%d, expected 8080/9090", cfg.HTTPPort, cfg.GRPCPort)
	}
	if cfg.MinPayoutMinorUnits != 2500 {
		t.Fatalf("default payout minimum %d, expected 2500", cfg.MinPayoutMinorUnits)
	}
	if cfg.InstantCeilingMinorUnits != 100000 {
		t.Fatalf("default instant ceiling %d, expected 100000", cfg.InstantCeilingMinorUnits)
	}
	if cfg.BatchHourUTC != 2 {
		t.Fatalf("default batch hour %d, expected 2", cfg.BatchHourUTC)
	}
	if cfg.Risk.HoldThreshold != 0.7 {
		t.Fatalf("default hold threshold %.2f, expected 0.70", cfg.Risk.HoldThreshold)
	}
}

func TestLoadConfigFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := []byte(`
service:
  id: revenue-test
  http_port: 9000
revenue:
  min_payout_minor_units: 1000
  batch_hour_utc: 5
risk:
  hold_threshold: 0.9
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PAYOUT_BATCH_SIZE", "7")

	cfg, err := bootstrap.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.ServiceID != "revenue-test" {
		t.Fatalf("service id %s, expected revenue-test", cfg.ServiceID)
	}
	if cfg.HTTPPort != 9000 {
		t.Fatalf("http port %d, expected 9000", cfg.HTTPPort)
	}
	if cfg.MinPayoutMinorUnits != 1000 {
		t.Fatalf("payout minimum %d, expected 1000", cfg.MinPayoutMinorUnits)
	}
	if cfg.BatchHourUTC != 5 {
		t.Fatalf("batch hour %d, expected 5", cfg.BatchHourUTC)
	}
	if cfg.Risk.HoldThreshold != 0.9 {
		t.Fatalf("hold threshold %.2f, expected 0.90", cfg.Risk.HoldThreshold)
	}
	if cfg.BatchSize != 7 {
		t.Fatalf("env override batch size %d, expected 7", cfg.BatchSize)
	}
}
