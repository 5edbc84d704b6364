package features_test

import (
	"math"
	"testing"

	"cadence/internal/config"
	"cadence/internal/dsp"
	"cadence/internal/features"
	"cadence/internal/testsupport"
	"cadence/internal/wavio"
)

func clip(freq float64, duration float64) wavio.Clip {
	const rate = 22050
	return wavio.Clip{
		Samples:    testsupport.SineWave(freq, rate, duration),
		SampleRate: rate,
	}
}

func TestForConfigSelectsPipeline(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	ext, err := features.ForConfig(cfg)
	if err != nil {
		t.Fatalf("ForConfig: %v", err)
	}
	if ext.Name() != "cepstral" {
		t.Fatalf("default extractor = %q, want cepstral", ext.Name())
	}
	if ext.Dimensions() != cfg.Analysis.CepstralCoefficients {
		t.Fatalf("dimensions = %d, want %d", ext.Dimensions(), cfg.Analysis.CepstralCoefficients)
	}

	cfg.Analysis.Extractor = config.ExtractorSpectral
	ext, err = features.ForConfig(cfg)
	if err != nil {
		t.Fatalf("ForConfig spectral: %v", err)
	}
	if ext.Name() != "spectral" || ext.Dimensions() != len(features.SpectralFeatureNames) {
		t.Fatalf("spectral extractor = %q/%d", ext.Name(), ext.Dimensions())
	}

	cfg.Analysis.Extractor = "wavelet"
	if _, err := features.ForConfig(cfg); err == nil {
		t.Fatal("expected error for unknown extractor")
	}
}

func TestSpectralVectorShapeAndRanges(t *testing.T) {
	ext := features.NewSpectralStats(2048, 512)
	vec, err := ext.Extract(clip(440, 1.0))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(vec) != len(features.SpectralFeatureNames) {
		t.Fatalf("vector length %d, want %d", len(vec), len(features.SpectralFeatureNames))
	}
	if !dsp.IsFinite(vec) {
		t.Fatalf("non-finite vector: %v", vec)
	}
	for i, name := range features.SpectralFeatureNames {
		if name == "tempo" {
			if vec[i] <= 0 {
				t.Fatalf("tempo = %v, want positive BPM", vec[i])
			}
			continue
		}
		if vec[i] < 0 || vec[i] > 1 {
			t.Fatalf("%s = %v outside [0,1]", name, vec[i])
		}
	}
}

func TestSpectralHandlesDegenerateClips(t *testing.T) {
	ext := features.NewSpectralStats(2048, 512)
	for name, c := range map[string]wavio.Clip{
		"silence": {Samples: make([]float64, 22050), SampleRate: 22050},
		"empty":   {Samples: nil, SampleRate: 22050},
		"short":   {Samples: []float64{0.1, -0.2, 0.3}, SampleRate: 22050},
	} {
		vec, err := ext.Extract(c)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(vec) != ext.Dimensions() || !dsp.IsFinite(vec) {
			t.Fatalf("%s: bad vector %v", name, vec)
		}
	}

	if _, err := ext.Extract(wavio.Clip{Samples: []float64{0}, SampleRate: 0}); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestCepstralFingerprintIsNormalized(t *testing.T) {
	ext := features.NewCepstral(2048, 512, 26)
	vec, err := ext.Extract(clip(440, 1.0))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(vec) != 26 {
		t.Fatalf("vector length %d, want 26", len(vec))
	}
	if norm := dsp.Norm(vec); math.Abs(norm-1) > 1e-6 {
		t.Fatalf("fingerprint norm = %v, want 1", norm)
	}
}

func TestCepstralIsDeterministic(t *testing.T) {
	ext := features.NewCepstral(2048, 512, 26)
	a, err := ext.Extract(clip(880, 0.5))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, err := ext.Extract(clip(880, 0.5))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestCepstralSeparatesDifferentTones(t *testing.T) {
	ext := features.NewCepstral(2048, 512, 26)
	low, err := ext.Extract(clip(220, 1.0))
	if err != nil {
		t.Fatalf("Extract low: %v", err)
	}
	high, err := ext.Extract(clip(3500, 1.0))
	if err != nil {
		t.Fatalf("Extract high: %v", err)
	}
	self := dsp.CosineSimilarity(low, low)
	cross := dsp.CosineSimilarity(low, high)
	if cross >= self {
		t.Fatalf("cross similarity %v should be below self similarity %v", cross, self)
	}
}

func TestCepstralAdaptsToSampleRateChange(t *testing.T) {
	ext := features.NewCepstral(2048, 512, 13)
	for _, rate := range []int{22050, 44100, 22050} {
		c := wavio.Clip{Samples: testsupport.SineWave(440, rate, 0.25), SampleRate: rate}
		vec, err := ext.Extract(c)
		if err != nil {
			t.Fatalf("rate %d: %v", rate, err)
		}
		if len(vec) != 13 || !dsp.IsFinite(vec) {
			t.Fatalf("rate %d: bad vector %v", rate, vec)
		}
	}
}
