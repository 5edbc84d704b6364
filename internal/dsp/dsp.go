package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyzer computes framed spectra for a fixed frame geometry. The FFT plan
// is reused across frames, so construct one Analyzer per clip or per worker
// rather than per frame.
type Analyzer struct {
	frameSize int
	hopSize   int
	fft       *fourier.FFT
	window    []float64
}

// NewAnalyzer builds an analyzer for the given frame geometry. frameSize
// must be a power of two and hopSize must be in (0, frameSize].
func NewAnalyzer(frameSize, hopSize int) *Analyzer {
	return &Analyzer{
		frameSize: frameSize,
		hopSize:   hopSize,
		fft:       fourier.NewFFT(frameSize),
		window:    hannWindow(frameSize),
	}
}

// FrameSize returns the analysis frame length in samples.
func (a *Analyzer) FrameSize() int { return a.frameSize }

// HopSize returns the hop between consecutive frames in samples.
func (a *Analyzer) HopSize() int { return a.hopSize }

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// Spectrogram computes magnitude spectra for every full frame of the signal.
// Signals shorter than one frame are zero-padded to a single frame so
// degenerate clips still produce one spectrum.
func (a *Analyzer) Spectrogram(signal []float64) [][]float64 {
	if len(signal) < a.frameSize {
		padded := make([]float64, a.frameSize)
		copy(padded, signal)
		signal = padded
	}

	frames := 1 + (len(signal)-a.frameSize)/a.hopSize
	spectra := make([][]float64, 0, frames)
	buf := make([]float64, a.frameSize)

	for start := 0; start+a.frameSize <= len(signal); start += a.hopSize {
		for i := 0; i < a.frameSize; i++ {
			buf[i] = signal[start+i] * a.window[i]
		}
		coeffs := a.fft.Coefficients(nil, buf)
		mag := make([]float64, len(coeffs))
		for i, c := range coeffs {
			mag[i] = cmplxAbs(c)
		}
		spectra = append(spectra, mag)
	}
	return spectra
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// BinFrequencies returns the center frequency in Hz for each spectrum bin.
func (a *Analyzer) BinFrequencies(sampleRate int) []float64 {
	bins := a.frameSize/2 + 1
	freqs := make([]float64, bins)
	for i := range freqs {
		freqs[i] = float64(i) * float64(sampleRate) / float64(a.frameSize)
	}
	return freqs
}

// RMS returns the root-mean-square level of the signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	var sum float64
	for _, s := range signal {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(signal)))
}

// ZeroCrossingRate returns the fraction of adjacent sample pairs whose sign
// differs, in [0, 1].
func ZeroCrossingRate(signal []float64) float64 {
	if len(signal) < 2 {
		return 0
	}
	var crossings int
	for i := 1; i < len(signal); i++ {
		if (signal[i-1] >= 0) != (signal[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(signal)-1)
}

// SpectralCentroid returns the magnitude-weighted mean frequency of a
// spectrum. An all-zero spectrum yields 0.
func SpectralCentroid(magnitude, freqs []float64) float64 {
	var weighted, total float64
	for i, m := range magnitude {
		weighted += freqs[i] * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// SpectralBandwidth returns the magnitude-weighted standard deviation of
// frequency around the centroid.
func SpectralBandwidth(magnitude, freqs []float64, centroid float64) float64 {
	var weighted, total float64
	for i, m := range magnitude {
		diff := freqs[i] - centroid
		weighted += diff * diff * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return math.Sqrt(weighted / total)
}

// SpectralFlatness returns the geometric mean over arithmetic mean of the
// power spectrum, in [0, 1]. Tonal spectra approach 0, noise approaches 1.
func SpectralFlatness(magnitude []float64) float64 {
	if len(magnitude) == 0 {
		return 0
	}
	const eps = 1e-10
	var logSum, sum float64
	for _, m := range magnitude {
		p := m*m + eps
		logSum += math.Log(p)
		sum += p
	}
	arithmetic := sum / float64(len(magnitude))
	geometric := math.Exp(logSum / float64(len(magnitude)))
	if arithmetic == 0 {
		return 0
	}
	flatness := geometric / arithmetic
	if flatness > 1 {
		flatness = 1
	}
	return flatness
}

// Normalize returns the L2-normalized copy of v. A zero vector normalizes
// to the all-zero vector of the same length rather than dividing by zero.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	norm := Norm(v)
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// Norm returns the L2 norm of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Similarity involving a zero vector is defined as 0, not NaN.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
