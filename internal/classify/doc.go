// Package classify assigns genre labels to feature vectors. Two strategies
// are provided: nearest-reference cosine matching against a labeled corpus,
// and a trained multinomial logistic model loaded from a gob artifact.
package classify
