package testsupport

import (
	"bytes"
	"math"
	"testing"

	"cadence/internal/wavio"
)

// SineWave generates a mono sine tone as float64 samples in [-1, 1].
func SineWave(freq float64, sampleRate int, duration float64) []float64 {
	n := int(duration * float64(sampleRate))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return samples
}

// SineWAV encodes a sine tone as a 16-bit PCM WAV payload.
func SineWAV(t testing.TB, freq float64, sampleRate int, duration float64) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := wavio.EncodeMono16(&buf, SineWave(freq, sampleRate, duration), sampleRate); err != nil {
		t.Fatalf("encode sine wav: %v", err)
	}
	return buf.Bytes()
}

// SilentWAV encodes all-zero samples as a 16-bit PCM WAV payload.
func SilentWAV(t testing.TB, sampleRate int, duration float64) []byte {
	t.Helper()

	var buf bytes.Buffer
	samples := make([]float64, int(duration*float64(sampleRate)))
	if err := wavio.EncodeMono16(&buf, samples, sampleRate); err != nil {
		t.Fatalf("encode silent wav: %v", err)
	}
	return buf.Bytes()
}
