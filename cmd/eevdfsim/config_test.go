package main

import (
	"os"
	"path/filepath"
	"testing"

	"eevdf/pkg/eevdf"
)

func TestDefaultRuntimeConfig(t *testing.T) {
	cfg := defaultRuntimeConfig()
	if cfg.Variant != eevdf.VariantWeighted {
		t.Errorf("default Variant = %v, want VariantWeighted", cfg.Variant)
	}
	if cfg.Shards != 1 {
		t.Errorf("default Shards = %d, want 1", cfg.Shards)
	}
	if cfg.SourceKind != "mock" {
		t.Errorf("default SourceKind = %q, want mock", cfg.SourceKind)
	}
}

func TestLoadConfigWithNoPathReturnsDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(\"\"): %v", err)
	}
	if cfg.Shards != 1 {
		t.Errorf("Shards = %d, want 1", cfg.Shards)
	}
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("loadConfig on a missing file returned an error: %v", err)
	}
	if cfg.Variant != eevdf.VariantWeighted {
		t.Errorf("Variant = %v, want VariantWeighted default", cfg.Variant)
	}
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	yaml := "variant: averaged\nshards: 4\nplaceLag: true\nplaceRelDeadline: true\ndeadlineTolerance: 50\nsourceKind: file\nsourcePath: /tmp/trace.jsonl\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Variant != eevdf.VariantAveraged {
		t.Errorf("Variant = %v, want VariantAveraged", cfg.Variant)
	}
	if cfg.Shards != 4 {
		t.Errorf("Shards = %d, want 4", cfg.Shards)
	}
	if !cfg.PlaceLag {
		t.Error("PlaceLag = false, want true")
	}
	if !cfg.PlaceRelDeadline {
		t.Error("PlaceRelDeadline = false, want true")
	}
	if cfg.DeadlineTolerance != 50 {
		t.Errorf("DeadlineTolerance = %d, want 50", cfg.DeadlineTolerance)
	}
	if cfg.SourceKind != "file" || cfg.SourcePath != "/tmp/trace.jsonl" {
		t.Errorf("SourceKind/SourcePath = %q/%q, want file//tmp/trace.jsonl", cfg.SourceKind, cfg.SourcePath)
	}
}

func TestLoadConfigEnvOverridesPlaceRelDeadlineAndTolerance(t *testing.T) {
	t.Setenv(envPlaceRelDeadline, "true")
	t.Setenv(envDeadlineTolerance, "25")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.PlaceRelDeadline {
		t.Error("PlaceRelDeadline = false, want true (env override)")
	}
	if cfg.DeadlineTolerance != 25 {
		t.Errorf("DeadlineTolerance = %d, want 25 (env override)", cfg.DeadlineTolerance)
	}
}

func TestLoadConfigRejectsInvalidEnvDeadlineTolerance(t *testing.T) {
	t.Setenv(envDeadlineTolerance, "not-a-number")
	if _, err := loadConfig(""); err == nil {
		t.Error("loadConfig with invalid EEVDFSIM_DEADLINE_TOLERANCE: want error, got nil")
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(path, []byte("variant: weighted\nshards: 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv(envVariant, "averaged")
	t.Setenv(envShards, "8")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Variant != eevdf.VariantAveraged {
		t.Errorf("Variant = %v, want VariantAveraged (env override)", cfg.Variant)
	}
	if cfg.Shards != 8 {
		t.Errorf("Shards = %d, want 8 (env override)", cfg.Shards)
	}
}

func TestLoadConfigRejectsInvalidEnvInt(t *testing.T) {
	t.Setenv(envShards, "not-a-number")
	if _, err := loadConfig(""); err == nil {
		t.Error("loadConfig with invalid EEVDFSIM_SHARDS: want error, got nil")
	}
}

func TestParseVariantFallsBackOnUnknown(t *testing.T) {
	if got := parseVariant("bogus", eevdf.VariantAveraged); got != eevdf.VariantAveraged {
		t.Errorf("parseVariant(bogus) = %v, want fallback VariantAveraged", got)
	}
}
