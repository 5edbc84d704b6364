package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Analysis contains feature extraction settings.
type Analysis struct {
	// Extractor selects the feature pipeline: "spectral" (8 clip-level
	// descriptors in their natural scales) or "cepstral" (L2-normalized
	// mean MFCC fingerprint).
	Extractor            string `toml:"extractor"`
	CepstralCoefficients int    `toml:"cepstral_coefficients"`
	FrameSize            int    `toml:"frame_size"`
	HopSize              int    `toml:"hop_size"`
}

// Classifier contains classification strategy settings.
type Classifier struct {
	// Strategy selects "nearest-reference" (cosine matching against the
	// seeded corpus) or "trained-model" (serialized artifact on disk).
	Strategy string `toml:"strategy"`
	// ModelPath locates the gob-encoded trained artifact. Only used by the
	// trained-model strategy. The artifact may be mounted asynchronously;
	// loading retries with backoff rather than failing the daemon.
	ModelPath         string `toml:"model_path"`
	ModelRetryBase    int    `toml:"model_retry_base"`
	ModelRetryMax     int    `toml:"model_retry_max"`
	CorpusRefreshSecs int    `toml:"corpus_refresh_seconds"`
}

// Worker contains daemon timing and resilience intervals, in seconds
// unless noted otherwise.
type Worker struct {
	PollInterval       int `toml:"poll_interval"`
	MaxIdleBackoff     int `toml:"max_idle_backoff"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	ReconnectBase      int `toml:"reconnect_base"`
	ReconnectMax       int `toml:"reconnect_max"`
	ConnectTimeout     int `toml:"connect_timeout"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Cadence.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Analysis: feature extractor selection and DSP frame geometry
//   - Classifier: strategy selection and trained artifact location
//   - Worker: polling, backoff, reconnect, and heartbeat intervals
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Analysis   Analysis   `toml:"analysis"`
	Classifier Classifier `toml:"classifier"`
	Worker     Worker     `toml:"worker"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cadence/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("CADENCE_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cadence.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.BlobDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// BlobDir returns the directory backing the binary blob store.
func (c *Config) BlobDir() string {
	return filepath.Join(c.Paths.DataDir, "blobs")
}

// QueueDBPath returns the SQLite database location for the task store.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "cadence.db")
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func (c *Config) normalize() error {
	expansions := []struct {
		name  string
		value *string
	}{
		{"paths.data_dir", &c.Paths.DataDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"classifier.model_path", &c.Classifier.ModelPath},
	}
	for _, field := range expansions {
		if strings.TrimSpace(*field.value) == "" {
			continue
		}
		expanded, err := expandPath(*field.value)
		if err != nil {
			return fmt.Errorf("expand %s: %w", field.name, err)
		}
		*field.value = expanded
	}

	c.Analysis.Extractor = strings.ToLower(strings.TrimSpace(c.Analysis.Extractor))
	c.Classifier.Strategy = strings.ToLower(strings.TrimSpace(c.Classifier.Strategy))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path must not be empty")
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			trimmed = home
		} else {
			trimmed = filepath.Join(home, trimmed[2:])
		}
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}
