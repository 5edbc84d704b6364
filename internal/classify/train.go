package classify

import (
	"fmt"
	"math"
	"sort"
)

// TrainOptions controls the logistic regression fit.
type TrainOptions struct {
	// Epochs is the number of full passes over the training set.
	Epochs int
	// LearningRate scales each gradient step.
	LearningRate float64
	// Standardize fits a scaler on the training data and embeds it in
	// the artifact.
	Standardize bool
}

// DefaultTrainOptions are sufficient for the small corpora this tool
// trains on.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Epochs: 500, LearningRate: 0.1, Standardize: true}
}

// Train fits a multinomial logistic model with batch gradient descent and
// packages it as an artifact. Labels are deduplicated in sorted order so
// repeated training runs on the same data produce the same class layout.
func Train(vectors [][]float64, labels []string, opts TrainOptions) (*Artifact, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no training samples")
	}
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("%d vectors but %d labels", len(vectors), len(labels))
	}
	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("zero-width training vectors")
	}
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector %d has length %d, expected %d", i, len(v), dims)
		}
	}
	if opts.Epochs <= 0 || opts.LearningRate <= 0 {
		return nil, fmt.Errorf("epochs and learning rate must be positive")
	}

	classNames := uniqueSorted(labels)
	if len(classNames) < 2 {
		return nil, fmt.Errorf("training data must contain at least two labels")
	}
	classIndex := make(map[string]int, len(classNames))
	for i, name := range classNames {
		classIndex[name] = i
	}

	artifact := &Artifact{
		Weights: newMatrix(len(classNames), dims),
		Bias:    make([]float64, len(classNames)),
		Labels:  classNames,
	}

	inputs := vectors
	if opts.Standardize {
		mean, std := fitScaler(vectors)
		artifact.ScalerMean = mean
		artifact.ScalerStd = std
		inputs = make([][]float64, len(vectors))
		for i, v := range vectors {
			scaled := make([]float64, dims)
			for d := range v {
				scaled[d] = (v[d] - mean[d]) / std[d]
			}
			inputs[i] = scaled
		}
	}

	n := float64(len(inputs))
	scores := make([]float64, len(classNames))
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		gradW := newMatrix(len(classNames), dims)
		gradB := make([]float64, len(classNames))

		for i, x := range inputs {
			for c, row := range artifact.Weights {
				s := artifact.Bias[c]
				for d, w := range row {
					s += w * x[d]
				}
				scores[c] = s
			}
			probs := softmax(scores)
			target := classIndex[labels[i]]
			for c := range probs {
				diff := probs[c]
				if c == target {
					diff -= 1
				}
				gradB[c] += diff
				for d := range x {
					gradW[c][d] += diff * x[d]
				}
			}
		}

		step := opts.LearningRate / n
		for c := range artifact.Weights {
			artifact.Bias[c] -= step * gradB[c]
			for d := range artifact.Weights[c] {
				artifact.Weights[c][d] -= step * gradW[c][d]
			}
		}
	}
	return artifact, nil
}

func uniqueSorted(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func fitScaler(vectors [][]float64) (mean, std []float64) {
	dims := len(vectors[0])
	mean = make([]float64, dims)
	std = make([]float64, dims)
	n := float64(len(vectors))
	for _, v := range vectors {
		for d, x := range v {
			mean[d] += x
		}
	}
	for d := range mean {
		mean[d] /= n
	}
	for _, v := range vectors {
		for d, x := range v {
			diff := x - mean[d]
			std[d] += diff * diff
		}
	}
	for d := range std {
		std[d] = math.Sqrt(std[d] / n)
		if std[d] == 0 {
			std[d] = 1
		}
	}
	return mean, std
}
