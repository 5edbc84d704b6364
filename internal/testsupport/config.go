package testsupport

import (
	"path/filepath"
	"testing"

	"cadence/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Classifier.ModelPath = filepath.Join(base, "model", "classifier.gob")
	cfg.Worker.PollInterval = 1
	cfg.Worker.MaxIdleBackoff = 2

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithExtractor overrides the analysis extractor on the test config.
func WithExtractor(name string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Analysis.Extractor = name
	}
}

// WithStrategy overrides the classifier strategy on the test config.
func WithStrategy(name string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Classifier.Strategy = name
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
