package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadScanConfigDefaults(t *testing.T) {
	l := NewLoader()
	cfg, err := l.LoadScanConfig(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("LoadScanConfig() error = %v", err)
	}
	if !cfg.Recursive {
		t.Error("expected Recursive default true")
	}
	if !cfg.UseSizeComparison || !cfg.UseHashComparison {
		t.Error("expected size/hash comparison defaults true")
	}
	if cfg.ThumbnailEdgePx != 256 {
		t.Errorf("ThumbnailEdgePx = %d, want 256", cfg.ThumbnailEdgePx)
	}
}

func TestLoadScanConfigProjectFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := "recursive: false\nthumbnail_edge_px: 128\nroots:\n  - /data/photos\n"
	if err := os.WriteFile(filepath.Join(dir, projectConfigFile), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	l := NewLoader()
	cfg, err := l.LoadScanConfig(dir, nil)
	if err != nil {
		t.Fatalf("LoadScanConfig() error = %v", err)
	}
	if cfg.Recursive {
		t.Error("expected project file to override Recursive to false")
	}
	if cfg.ThumbnailEdgePx != 128 {
		t.Errorf("ThumbnailEdgePx = %d, want 128 from project file", cfg.ThumbnailEdgePx)
	}
	if len(cfg.Roots) != 1 || cfg.Roots[0] != "/data/photos" {
		t.Errorf("Roots = %v, want [/data/photos]", cfg.Roots)
	}
}

func TestLoadScanConfigCLIOverridesBeatProjectFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "thumbnail_edge_px: 128\n"
	if err := os.WriteFile(filepath.Join(dir, projectConfigFile), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	l := NewLoader()
	cfg, err := l.LoadScanConfig(dir, map[string]interface{}{"thumbnail_edge_px": 512})
	if err != nil {
		t.Fatalf("LoadScanConfig() error = %v", err)
	}
	if cfg.ThumbnailEdgePx != 512 {
		t.Errorf("ThumbnailEdgePx = %d, want 512 from CLI override", cfg.ThumbnailEdgePx)
	}
}

func TestLoadScanConfigNilOverrideDoesNotClobber(t *testing.T) {
	l := NewLoader()
	cfg, err := l.LoadScanConfig(t.TempDir(), map[string]interface{}{"thumbnail_edge_px": nil})
	if err != nil {
		t.Fatalf("LoadScanConfig() error = %v", err)
	}
	if cfg.ThumbnailEdgePx != 256 {
		t.Errorf("ThumbnailEdgePx = %d, want default 256 when override is nil", cfg.ThumbnailEdgePx)
	}
}

func TestLoadSafeDeleteOptionsDefaults(t *testing.T) {
	l := NewLoader()
	opts, err := l.LoadSafeDeleteOptions(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("LoadSafeDeleteOptions() error = %v", err)
	}
	if opts.DoubleConfirmFileCount != 10 {
		t.Errorf("DoubleConfirmFileCount = %d, want 10", opts.DoubleConfirmFileCount)
	}
	if !opts.BlockSystemFiles {
		t.Error("expected BlockSystemFiles default true")
	}
}

func TestLoadSafeDeleteOptionsProjectFileSection(t *testing.T) {
	dir := t.TempDir()
	yaml := "safe_delete:\n  double_confirm_file_count: 25\n  cooldown_enabled: true\n"
	if err := os.WriteFile(filepath.Join(dir, projectConfigFile), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	l := NewLoader()
	opts, err := l.LoadSafeDeleteOptions(dir, nil)
	if err != nil {
		t.Fatalf("LoadSafeDeleteOptions() error = %v", err)
	}
	if opts.DoubleConfirmFileCount != 25 {
		t.Errorf("DoubleConfirmFileCount = %d, want 25", opts.DoubleConfirmFileCount)
	}
	if !opts.CooldownEnabled {
		t.Error("expected CooldownEnabled true from project file")
	}
}

func TestLoadScanConfigMissingRepoPathFallsBackToCWD(t *testing.T) {
	l := NewLoader()
	if _, err := l.LoadScanConfig("", nil); err != nil {
		t.Fatalf("LoadScanConfig(\"\") error = %v", err)
	}
}
