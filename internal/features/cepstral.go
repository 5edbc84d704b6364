package features

import (
	"cadence/internal/dsp"
	"cadence/internal/wavio"
)

const melFilterCount = 40

// Cepstral fingerprints a clip as the per-frame mean of its mel-cepstral
// coefficients, L2-normalized so that cosine comparison ignores overall
// loudness. A fully silent clip yields the all-zero vector.
type Cepstral struct {
	analyzer  *dsp.Analyzer
	numCoeffs int

	// The mel bank depends on the clip sample rate, so it is built
	// lazily and rebuilt when the rate changes.
	bankRate int
	bank     *dsp.MelBank
}

// NewCepstral builds the cepstral pipeline producing numCoeffs
// coefficients per clip.
func NewCepstral(frameSize, hopSize, numCoeffs int) *Cepstral {
	return &Cepstral{
		analyzer:  dsp.NewAnalyzer(frameSize, hopSize),
		numCoeffs: numCoeffs,
	}
}

func (c *Cepstral) Name() string { return "cepstral" }

func (c *Cepstral) Dimensions() int { return c.numCoeffs }

func (c *Cepstral) Extract(clip wavio.Clip) ([]float64, error) {
	if err := validateClip(clip); err != nil {
		return nil, err
	}
	if c.bank == nil || c.bankRate != clip.SampleRate {
		c.bank = dsp.NewMelBank(clip.SampleRate, c.analyzer.FrameSize(), melFilterCount, c.numCoeffs)
		c.bankRate = clip.SampleRate
	}

	spectra := c.analyzer.Spectrogram(clip.Samples)
	mean := make([]float64, c.numCoeffs)
	for _, mag := range spectra {
		for i, coeff := range c.bank.Coefficients(mag) {
			mean[i] += coeff
		}
	}
	for i := range mean {
		mean[i] /= float64(len(spectra))
	}
	sanitize(mean)
	return dsp.Normalize(mean), nil
}
