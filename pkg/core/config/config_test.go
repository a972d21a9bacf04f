package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compare.yaml")
	content := []byte("window: 4\nratio_categories:\n  - profitability\n  - growth\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window != 4 {
		t.Errorf("window = %d, want 4", cfg.Window)
	}
	if len(cfg.RatioCategories) != 2 || cfg.RatioCategories[0] != "profitability" {
		t.Errorf("categories = %v", cfg.RatioCategories)
	}
	// Unset fields fall back to defaults.
	if cfg.SimilarityThreshold != 0.8 {
		t.Errorf("threshold = %v, want 0.8", cfg.SimilarityThreshold)
	}
	if cfg.RetrievalK != 8 || cfg.MinCompanyCoverage != 2 {
		t.Errorf("retrieval defaults not applied: k=%d coverage=%d", cfg.RetrievalK, cfg.MinCompanyCoverage)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultWindow(t *testing.T) {
	if Default().Window != 3 {
		t.Errorf("default window = %d, want 3", Default().Window)
	}
}
