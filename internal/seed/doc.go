// Package seed builds the reference corpus and training data from labeled
// directories of WAV clips.
package seed
