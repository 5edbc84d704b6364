// Package features converts decoded audio into the fixed-length vectors
// the classifier consumes. Two pipelines are available: clip-level
// spectral descriptors and a mel-cepstral fingerprint.
package features
