package dsp

import "math"

const (
	minTempoBPM = 40
	maxTempoBPM = 220

	// DefaultTempoBPM is reported when the onset envelope carries no
	// usable periodicity, such as for silence or very short clips.
	DefaultTempoBPM = 120
)

// EstimateTempo estimates the dominant tempo of a clip in beats per minute
// from the autocorrelation of its spectral-flux onset envelope. Clips with
// no detectable periodicity report DefaultTempoBPM.
func EstimateTempo(spectra [][]float64, sampleRate, hopSize int) float64 {
	envelope := onsetEnvelope(spectra)
	if len(envelope) < 4 {
		return DefaultTempoBPM
	}

	// Remove the mean so sustained energy does not dominate the lags.
	var mean float64
	for _, v := range envelope {
		mean += v
	}
	mean /= float64(len(envelope))
	for i := range envelope {
		envelope[i] -= mean
	}

	framesPerSecond := float64(sampleRate) / float64(hopSize)
	minLag := int(framesPerSecond * 60 / maxTempoBPM)
	maxLag := int(framesPerSecond * 60 / minTempoBPM)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(envelope) {
		maxLag = len(envelope) - 1
	}
	if maxLag < minLag {
		return DefaultTempoBPM
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(envelope); i++ {
			corr += envelope[i] * envelope[i+lag]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 || bestCorr <= 0 {
		return DefaultTempoBPM
	}
	bpm := framesPerSecond * 60 / float64(bestLag)
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return DefaultTempoBPM
	}
	return bpm
}

// onsetEnvelope computes half-wave rectified spectral flux between
// consecutive frames.
func onsetEnvelope(spectra [][]float64) []float64 {
	if len(spectra) < 2 {
		return nil
	}
	envelope := make([]float64, len(spectra)-1)
	for i := 1; i < len(spectra); i++ {
		var flux float64
		prev, cur := spectra[i-1], spectra[i]
		for b := range cur {
			diff := cur[b] - prev[b]
			if diff > 0 {
				flux += diff
			}
		}
		envelope[i-1] = flux
	}
	return envelope
}
