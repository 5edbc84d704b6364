package features

import (
	"math"

	"cadence/internal/dsp"
	"cadence/internal/wavio"
)

// SpectralFeatureNames lists the clip-level descriptors produced by the
// spectral pipeline, in the order they appear in vectors and CSV exports.
var SpectralFeatureNames = []string{
	"acousticness",
	"danceability",
	"energy",
	"instrumentalness",
	"liveness",
	"speechiness",
	"tempo",
	"valence",
}

// Band limits (Hz) for the vocal-presence proxy used by instrumentalness
// and speechiness.
const (
	vocalBandLow  = 300.0
	vocalBandHigh = 3000.0
)

// SpectralStats summarizes a whole clip as eight perceptual descriptors.
// Each descriptor except tempo lies in [0, 1]; tempo is reported as raw
// beats per minute. The vector is intentionally not normalized, since the
// components carry meaning on their own scales.
type SpectralStats struct {
	analyzer *dsp.Analyzer
}

// NewSpectralStats builds the spectral pipeline for the given frame
// geometry.
func NewSpectralStats(frameSize, hopSize int) *SpectralStats {
	return &SpectralStats{analyzer: dsp.NewAnalyzer(frameSize, hopSize)}
}

func (s *SpectralStats) Name() string { return "spectral" }

func (s *SpectralStats) Dimensions() int { return len(SpectralFeatureNames) }

func (s *SpectralStats) Extract(clip wavio.Clip) ([]float64, error) {
	if err := validateClip(clip); err != nil {
		return nil, err
	}

	spectra := s.analyzer.Spectrogram(clip.Samples)
	freqs := s.analyzer.BinFrequencies(clip.SampleRate)

	var meanFlatness, meanCentroid, meanBandwidth, meanVocalRatio, meanUpperFlatness float64
	for _, mag := range spectra {
		centroid := dsp.SpectralCentroid(mag, freqs)
		meanCentroid += centroid
		meanBandwidth += dsp.SpectralBandwidth(mag, freqs, centroid)
		meanFlatness += dsp.SpectralFlatness(mag)
		meanVocalRatio += bandEnergyRatio(mag, freqs, vocalBandLow, vocalBandHigh)
		meanUpperFlatness += dsp.SpectralFlatness(mag[len(mag)/2:])
	}
	frames := float64(len(spectra))
	meanFlatness /= frames
	meanCentroid /= frames
	meanBandwidth /= frames
	meanVocalRatio /= frames
	meanUpperFlatness /= frames

	tempo := dsp.EstimateTempo(spectra, clip.SampleRate, s.analyzer.HopSize())

	const eps = 1e-10
	vector := []float64{
		clamp01(1 - meanFlatness),                       // acousticness
		clamp01(1 - dsp.ZeroCrossingRate(clip.Samples)), // danceability
		clamp01(dsp.RMS(clip.Samples)),                  // energy
		clamp01(1 - meanVocalRatio),                     // instrumentalness
		clamp01(meanUpperFlatness),                      // liveness
		clamp01(meanVocalRatio),                         // speechiness
		tempo,                                           // tempo
		clamp01(meanCentroid / (meanCentroid + meanBandwidth + eps)), // valence
	}
	sanitize(vector)
	return vector, nil
}

func bandEnergyRatio(magnitude, freqs []float64, low, high float64) float64 {
	var band, total float64
	for i, m := range magnitude {
		p := m * m
		total += p
		if freqs[i] >= low && freqs[i] <= high {
			band += p
		}
	}
	if total == 0 {
		return 0
	}
	return band / total
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// sanitize replaces any non-finite component in place so downstream
// arithmetic never sees NaN or Inf.
func sanitize(v []float64) {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v[i] = 0
		}
	}
}
