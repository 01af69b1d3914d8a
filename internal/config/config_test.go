package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Missing config file should not be an error, got %v", err)
	}
	if cfg.Server.Addr != ":8099" {
		t.Errorf("Expected default addr :8099, got %s", cfg.Server.Addr)
	}
	if cfg.Viewer.MainSamples != 10000 {
		t.Errorf("Expected default main_samples 10000, got %d", cfg.Viewer.MainSamples)
	}
	if !cfg.Trace.Snapshot {
		t.Error("Snapshot cache should default to enabled")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traceline.yaml")
	content := `
server:
  addr: ":9000"
trace:
  path: /tmp/trace.csv
  snapshot: false
viewer:
  main_samples: 500
  lane_count: 8
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Expected addr :9000, got %s", cfg.Server.Addr)
	}
	if cfg.Trace.Path != "/tmp/trace.csv" {
		t.Errorf("Expected trace path override, got %s", cfg.Trace.Path)
	}
	if cfg.Trace.Snapshot {
		t.Error("Snapshot should be disabled by the file")
	}
	if cfg.Viewer.MainSamples != 500 || cfg.Viewer.LaneCount != 8 {
		t.Errorf("Expected viewer overrides, got %+v", cfg.Viewer)
	}
	// Untouched keys keep their defaults.
	if cfg.Viewer.OverviewSamples != 10000 {
		t.Errorf("Expected default overview_samples, got %d", cfg.Viewer.OverviewSamples)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traceline.yaml")
	if err := os.WriteFile(path, []byte(":\n\t- nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Expected a YAML parse error")
	}
}
