package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.VoxelSize == nil || *cfg.VoxelSize != 0.05 {
		t.Errorf("unexpected default voxel size: %v", cfg.VoxelSize)
	}
	if cfg.IgnoreLabel == nil || *cfg.IgnoreLabel != 0 {
		t.Errorf("unexpected default ignore label: %v", cfg.IgnoreLabel)
	}
	if cfg.Model == nil || *cfg.Model == "" {
		t.Error("defaults must name a model")
	}
}

func TestLoadTuningConfig_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.json")
	content := `{"voxel_size": 0.2, "class_names": {"1": "car"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.VoxelSize == nil || *cfg.VoxelSize != 0.2 {
		t.Errorf("voxel_size not loaded: %v", cfg.VoxelSize)
	}
	if cfg.IgnoreLabel != nil {
		t.Error("omitted field should stay nil")
	}

	merged := Defaults().Merge(cfg)
	if *merged.VoxelSize != 0.2 {
		t.Errorf("merge did not overlay voxel size: %v", *merged.VoxelSize)
	}
	if *merged.IgnoreLabel != 0 {
		t.Errorf("merge lost default ignore label: %v", *merged.IgnoreLabel)
	}
	if merged.ClassName(1) != "car" {
		t.Errorf("class name lookup = %q, want car", merged.ClassName(1))
	}
	if merged.ClassName(9) != "9" {
		t.Errorf("unknown class should fall back to ID, got %q", merged.ClassName(9))
	}
}

func TestLoadTuningConfig_RequiresJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestLoadTuningConfig_Missing(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadTuningConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
