package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config carries every tunable of a comparison run. Zero values mean "use
// the default"; Load normalizes them so callers never see a zero window.
type Config struct {
	// Window is the number of fiscal periods aligned per company.
	Window int `yaml:"window"`

	// RatioCategories selects ratio groups; empty means all.
	RatioCategories []string `yaml:"ratio_categories"`

	// SimilarityThreshold is the minimum fuzzy-match score for mapping a
	// filing label onto a concept.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// UnitScaleOverride forces the unit scale factor when positive.
	UnitScaleOverride float64 `yaml:"unit_scale_override"`

	ChunkTokens        int `yaml:"chunk_tokens"`
	RetrievalK         int `yaml:"retrieval_k"`
	MinCompanyCoverage int `yaml:"min_company_coverage"`
	Workers            int `yaml:"workers"`

	EmbedCacheDir      string `yaml:"embed_cache_dir"`
	EmbedCacheDisabled bool   `yaml:"embed_cache_disabled"`

	ProviderModel string `yaml:"provider_model"`
	EmbedderModel string `yaml:"embedder_model"`
	OCRModel      string `yaml:"ocr_model"`

	// CollaboratorTimeoutSec bounds each OCR, embedding and generation
	// call, in seconds.
	CollaboratorTimeoutSec int `yaml:"collaborator_timeout_sec"`
}

// CollaboratorTimeout returns the per-call timeout as a duration.
func (c *Config) CollaboratorTimeout() time.Duration {
	return time.Duration(c.CollaboratorTimeoutSec) * time.Second
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Window:                 3,
		SimilarityThreshold:    0.8,
		ChunkTokens:            500,
		RetrievalK:             8,
		MinCompanyCoverage:     2,
		Workers:                4,
		EmbedCacheDir:          ".cache/embeddings",
		CollaboratorTimeoutSec: 120,
	}
}

// Load reads a YAML config file and fills unset fields from defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = def.SimilarityThreshold
	}
	if c.ChunkTokens <= 0 {
		c.ChunkTokens = def.ChunkTokens
	}
	if c.RetrievalK <= 0 {
		c.RetrievalK = def.RetrievalK
	}
	if c.MinCompanyCoverage <= 0 {
		c.MinCompanyCoverage = def.MinCompanyCoverage
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.EmbedCacheDir == "" && !c.EmbedCacheDisabled {
		c.EmbedCacheDir = def.EmbedCacheDir
	}
	if c.CollaboratorTimeoutSec <= 0 {
		c.CollaboratorTimeoutSec = def.CollaboratorTimeoutSec
	}
}
