package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/proclens/proclens/pkg/classify"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Thresholds.Temporal != 1.0 || cfg.Thresholds.Existential != 1.0 {
		t.Errorf("default thresholds = %v/%v, want 1.0/1.0", cfg.Thresholds.Temporal, cfg.Thresholds.Existential)
	}
	if cfg.Parser.CaseIDColumn != "case_id" {
		t.Errorf("default case column = %q", cfg.Parser.CaseIDColumn)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry must default to disabled")
	}
}

func TestConfig_RuleSetFallback(t *testing.T) {
	cfg := Default()
	rules := cfg.RuleSet()
	if len(rules.Primary) == 0 || len(rules.Unstructured) == 0 {
		t.Error("default rule set must carry the reference table")
	}
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	data := `version: 1
thresholds:
  temporal: 0.8
  existential: 0.9
parser:
  case_id_column: case
server:
  port: 9090
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Thresholds.Temporal != 0.8 || cfg.Thresholds.Existential != 0.9 {
		t.Errorf("thresholds = %v/%v, want 0.8/0.9", cfg.Thresholds.Temporal, cfg.Thresholds.Existential)
	}
	if cfg.Parser.CaseIDColumn != "case" {
		t.Errorf("case column = %q, want case", cfg.Parser.CaseIDColumn)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	// Untouched keys keep defaults.
	if cfg.Parser.ActivityColumn != "activity" {
		t.Errorf("activity column = %q, want default", cfg.Parser.ActivityColumn)
	}
}

func TestLoadFile_CustomRules(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	data := `rules:
  unstructured: []
  primary:
    - name: ONLY
      category: loosely-structured
      conditions:
        - metric: none_none
          op: ge
          value: 0.0
  secondary: []
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	rules := cfg.RuleSet()
	if len(rules.Primary) != 1 || rules.Primary[0].Name != "ONLY" {
		t.Fatalf("primary rules = %+v", rules.Primary)
	}
	if rules.Primary[0].Category != classify.CategoryLooselyStructured {
		t.Errorf("category = %v, want loosely-structured", rules.Primary[0].Category)
	}
	if rules.Primary[0].Conditions[0].Metric != classify.MetricNoneNone {
		t.Errorf("metric = %v, want none_none", rules.Primary[0].Conditions[0].Metric)
	}
}

func TestLoadFile_InvalidCategory(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	data := `rules:
  primary:
    - name: BAD
      category: nonsense
      conditions: []
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unknown rule category")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestManager_EnvOverrides(t *testing.T) {
	t.Setenv("PROCLENS_TEMPORAL_THRESHOLD", "0.75")
	t.Setenv("PROCLENS_SERVER_PORT", "3000")
	t.Setenv("PROCLENS_OTLP_ENDPOINT", "collector:4317")

	m := NewManager()
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Config()
	if cfg.Thresholds.Temporal != 0.75 {
		t.Errorf("temporal threshold = %v, want 0.75", cfg.Thresholds.Temporal)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.Server.Port)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint != "collector:4317" {
		t.Errorf("telemetry = %+v, want enabled at collector:4317", cfg.Telemetry)
	}
}
