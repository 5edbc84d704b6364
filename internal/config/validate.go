package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	switch c.Analysis.Extractor {
	case ExtractorSpectral, ExtractorCepstral:
	default:
		return fmt.Errorf("analysis.extractor must be %q or %q, got %q",
			ExtractorSpectral, ExtractorCepstral, c.Analysis.Extractor)
	}
	if c.Analysis.CepstralCoefficients <= 0 {
		return errors.New("analysis.cepstral_coefficients must be positive")
	}
	if c.Analysis.FrameSize <= 0 || c.Analysis.FrameSize&(c.Analysis.FrameSize-1) != 0 {
		return errors.New("analysis.frame_size must be a positive power of two")
	}
	if c.Analysis.HopSize <= 0 || c.Analysis.HopSize > c.Analysis.FrameSize {
		return errors.New("analysis.hop_size must be positive and no larger than frame_size")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	switch c.Classifier.Strategy {
	case StrategyNearestReference:
		// Reference fingerprints are cepstral; a spectral extractor would
		// produce vectors the corpus cannot compare against.
		if c.Analysis.Extractor != ExtractorCepstral {
			return fmt.Errorf("classifier.strategy %q requires analysis.extractor %q",
				StrategyNearestReference, ExtractorCepstral)
		}
	case StrategyTrainedModel:
		if strings.TrimSpace(c.Classifier.ModelPath) == "" {
			return errors.New("classifier.model_path must be set when strategy is trained-model")
		}
	default:
		return fmt.Errorf("classifier.strategy must be %q or %q, got %q",
			StrategyNearestReference, StrategyTrainedModel, c.Classifier.Strategy)
	}
	if c.Classifier.ModelRetryBase <= 0 {
		return errors.New("classifier.model_retry_base must be positive")
	}
	if c.Classifier.ModelRetryMax < c.Classifier.ModelRetryBase {
		return errors.New("classifier.model_retry_max must be at least model_retry_base")
	}
	if c.Classifier.CorpusRefreshSecs < 0 {
		return errors.New("classifier.corpus_refresh_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.PollInterval <= 0 {
		return errors.New("worker.poll_interval must be positive")
	}
	if c.Worker.MaxIdleBackoff < c.Worker.PollInterval {
		return errors.New("worker.max_idle_backoff must be at least poll_interval")
	}
	if c.Worker.ErrorRetryInterval <= 0 {
		return errors.New("worker.error_retry_interval must be positive")
	}
	if c.Worker.ReconnectBase <= 0 {
		return errors.New("worker.reconnect_base must be positive")
	}
	if c.Worker.ReconnectMax < c.Worker.ReconnectBase {
		return errors.New("worker.reconnect_max must be at least reconnect_base")
	}
	if c.Worker.ConnectTimeout <= 0 {
		return errors.New("worker.connect_timeout must be positive")
	}
	if c.Worker.HeartbeatInterval <= 0 {
		return errors.New("worker.heartbeat_interval must be positive")
	}
	if c.Worker.HeartbeatTimeout <= c.Worker.HeartbeatInterval {
		return errors.New("worker.heartbeat_timeout must exceed heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
