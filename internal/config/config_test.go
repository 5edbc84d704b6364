package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cadence/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected missing config, got exists for %s", path)
	}
	if cfg.Analysis.Extractor != config.ExtractorCepstral {
		t.Fatalf("unexpected default extractor: %q", cfg.Analysis.Extractor)
	}
	if cfg.Worker.PollInterval <= 0 {
		t.Fatal("expected positive default poll interval")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[analysis]
extractor = "spectral"

[classifier]
strategy = "trained-model"
model_path = "` + filepath.Join(dir, "model.gob") + `"

[worker]
poll_interval = 1
max_idle_backoff = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if cfg.Analysis.Extractor != config.ExtractorSpectral {
		t.Fatalf("extractor override lost: %q", cfg.Analysis.Extractor)
	}
	if cfg.Classifier.Strategy != config.StrategyTrainedModel {
		t.Fatalf("strategy override lost: %q", cfg.Classifier.Strategy)
	}
	if cfg.Worker.MaxIdleBackoff != 4 {
		t.Fatalf("worker override lost: %d", cfg.Worker.MaxIdleBackoff)
	}
}

func TestValidateRejectsMismatchedStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Extractor = config.ExtractorSpectral
	cfg.Classifier.Strategy = config.StrategyNearestReference
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for spectral extractor with nearest-reference strategy")
	}
	if !strings.Contains(err.Error(), "requires") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadFrameSize(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.FrameSize = 1000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for non power-of-two frame size")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when sample config already exists")
	}
}
