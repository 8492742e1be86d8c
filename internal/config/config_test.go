package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := Default()
	if cfg.Trust.PartnerMin != def.Trust.PartnerMin {
		t.Errorf("expected default partner cutoff %v, got %v", def.Trust.PartnerMin, cfg.Trust.PartnerMin)
	}
	if cfg.Safety.UndoWindow.Std() != time.Hour {
		t.Errorf("expected 1h undo window, got %v", cfg.Safety.UndoWindow.Std())
	}
	if cfg.Health.FailureThreshold != 3 {
		t.Errorf("expected threshold 3, got %d", cfg.Health.FailureThreshold)
	}
}

func TestLoadOverlaysOnlySpecifiedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
safety:
  undo_window: 30m
health:
  probe_interval: 10s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Safety.UndoWindow.Std() != 30*time.Minute {
		t.Errorf("undo window = %v, want 30m", cfg.Safety.UndoWindow.Std())
	}
	if cfg.Health.ProbeInterval.Std() != 10*time.Second {
		t.Errorf("probe interval = %v, want 10s", cfg.Health.ProbeInterval.Std())
	}
	// Unspecified fields keep defaults.
	if cfg.Trust.SurrogateMin != 0.9 {
		t.Errorf("surrogate cutoff = %v, want default 0.9", cfg.Trust.SurrogateMin)
	}
	if cfg.Health.ProbeTimeout.Std() != 5*time.Second {
		t.Errorf("probe timeout = %v, want default 5s", cfg.Health.ProbeTimeout.Std())
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("trust: ["), 0644)
	if _, err := Load(path); err == nil {
		t.Error("invalid YAML must fail")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("safety:\n  undo_window: soon\n"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("unparseable duration must fail")
	}
}

func TestValidateRejectsNonAscendingThresholds(t *testing.T) {
	cfg := Default()
	cfg.Trust.PartnerMin = 0.5 // below assistant cutoff
	if err := cfg.Validate(); err == nil {
		t.Error("non-ascending thresholds must fail validation")
	}

	cfg = Default()
	cfg.Trust.SurrogateMin = 1.0
	if err := cfg.Validate(); err == nil {
		t.Error("cutoff at 1.0 must fail validation")
	}
}

func TestValidateRejectsNonPositiveDurations(t *testing.T) {
	cfg := Default()
	cfg.Health.ProbeInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero probe interval must fail validation")
	}
}
