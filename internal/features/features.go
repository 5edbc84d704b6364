package features

import (
	"fmt"

	"cadence/internal/config"
	"cadence/internal/wavio"
)

// Extractor turns a decoded clip into a fixed-length feature vector. The
// vector length is stable for the life of the extractor, so fingerprints
// produced by the same configuration are always comparable.
type Extractor interface {
	// Name identifies the pipeline for logs and stored results.
	Name() string
	// Dimensions is the length of every vector Extract produces.
	Dimensions() int
	// Extract computes the feature vector for a clip. Silent or very
	// short clips still produce a finite vector of the right length.
	Extract(clip wavio.Clip) ([]float64, error)
}

// ForConfig builds the extractor selected by the analysis configuration.
func ForConfig(cfg *config.Config) (Extractor, error) {
	switch cfg.Analysis.Extractor {
	case config.ExtractorSpectral:
		return NewSpectralStats(cfg.Analysis.FrameSize, cfg.Analysis.HopSize), nil
	case config.ExtractorCepstral:
		return NewCepstral(cfg.Analysis.FrameSize, cfg.Analysis.HopSize, cfg.Analysis.CepstralCoefficients), nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", cfg.Analysis.Extractor)
	}
}

func validateClip(clip wavio.Clip) error {
	if clip.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", clip.SampleRate)
	}
	return nil
}
