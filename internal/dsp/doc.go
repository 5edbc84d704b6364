// Package dsp provides the signal-processing primitives behind feature
// extraction: framed FFT spectra, spectral shape descriptors, mel-cepstral
// coefficients, tempo estimation, and the vector math used for fingerprint
// comparison.
package dsp
