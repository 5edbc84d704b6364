package dsp

import "math"

// MelBank is a triangular mel-scale filter bank applied to magnitude
// spectra, plus the DCT needed to turn log filter energies into cepstral
// coefficients.
type MelBank struct {
	filters   [][]float64
	numCoeffs int
}

// NewMelBank builds numFilters triangular filters spanning 0 Hz to the
// Nyquist frequency for the given frame geometry, producing numCoeffs
// cepstral coefficients per frame.
func NewMelBank(sampleRate, frameSize, numFilters, numCoeffs int) *MelBank {
	bins := frameSize/2 + 1
	melMax := hzToMel(float64(sampleRate) / 2)

	// Filter edge frequencies, evenly spaced on the mel scale.
	points := make([]int, numFilters+2)
	for i := range points {
		mel := melMax * float64(i) / float64(numFilters+1)
		hz := melToHz(mel)
		bin := int(math.Round(hz * float64(frameSize) / float64(sampleRate)))
		if bin > bins-1 {
			bin = bins - 1
		}
		points[i] = bin
	}

	filters := make([][]float64, numFilters)
	for f := 0; f < numFilters; f++ {
		filter := make([]float64, bins)
		left, center, right := points[f], points[f+1], points[f+2]
		for b := left; b <= center && b < bins; b++ {
			if center > left {
				filter[b] = float64(b-left) / float64(center-left)
			} else {
				filter[b] = 1
			}
		}
		for b := center; b <= right && b < bins; b++ {
			if right > center {
				filter[b] = float64(right-b) / float64(right-center)
			}
		}
		filters[f] = filter
	}
	return &MelBank{filters: filters, numCoeffs: numCoeffs}
}

// Coefficients returns the cepstral coefficients of one magnitude spectrum:
// mel filter energies, log-compressed, then DCT-II.
func (m *MelBank) Coefficients(magnitude []float64) []float64 {
	const eps = 1e-10
	energies := make([]float64, len(m.filters))
	for f, filter := range m.filters {
		var sum float64
		n := len(filter)
		if len(magnitude) < n {
			n = len(magnitude)
		}
		for b := 0; b < n; b++ {
			sum += filter[b] * magnitude[b] * magnitude[b]
		}
		energies[f] = math.Log(sum + eps)
	}
	return dctII(energies, m.numCoeffs)
}

func dctII(input []float64, numCoeffs int) []float64 {
	n := len(input)
	out := make([]float64, numCoeffs)
	for k := 0; k < numCoeffs; k++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += input[i] * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(n))
		}
		out[k] = sum
	}
	return out
}

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}
