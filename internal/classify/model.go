package classify

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"strconv"
)

// Artifact is the gob-encoded trained classifier: multinomial logistic
// weights plus optional input scaling and label decoding. Train tools write
// it; the worker only reads it.
type Artifact struct {
	// Weights holds one row per class, each row as long as the feature
	// vector. Bias holds one intercept per class.
	Weights [][]float64
	Bias    []float64

	// ScalerMean and ScalerStd, when present, standardize inputs before
	// scoring. Both must match the feature vector length.
	ScalerMean []float64
	ScalerStd  []float64

	// Labels decodes class indices to genre names. When absent or too
	// short, predictions fall back to the numeric class index.
	Labels []string

	// HardOnly marks artifacts whose scores are not calibrated
	// probabilities. Predictions from such artifacts report confidence 1.
	HardOnly bool
}

// LoadArtifact reads and validates a gob-encoded artifact from disk.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model artifact: %w", err)
	}
	defer f.Close()

	var artifact Artifact
	if err := gob.NewDecoder(f).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if err := artifact.validate(); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// SaveArtifact writes the artifact to path with gob encoding, creating the
// file with owner-only permissions.
func SaveArtifact(path string, artifact *Artifact) error {
	if err := artifact.validate(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create model artifact: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(artifact); err != nil {
		f.Close()
		return fmt.Errorf("encode model artifact: %w", err)
	}
	return f.Close()
}

func (a *Artifact) validate() error {
	if len(a.Weights) == 0 {
		return fmt.Errorf("model artifact has no weight rows")
	}
	dims := len(a.Weights[0])
	if dims == 0 {
		return fmt.Errorf("model artifact has zero-width weight rows")
	}
	for i, row := range a.Weights {
		if len(row) != dims {
			return fmt.Errorf("weight row %d has length %d, expected %d", i, len(row), dims)
		}
	}
	if len(a.Bias) != len(a.Weights) {
		return fmt.Errorf("bias length %d does not match %d classes", len(a.Bias), len(a.Weights))
	}
	if (len(a.ScalerMean) == 0) != (len(a.ScalerStd) == 0) {
		return fmt.Errorf("scaler mean and std must be provided together")
	}
	if len(a.ScalerMean) > 0 && (len(a.ScalerMean) != dims || len(a.ScalerStd) != dims) {
		return fmt.Errorf("scaler length does not match %d feature dimensions", dims)
	}
	return nil
}

// Dimensions returns the feature vector length the artifact expects.
func (a *Artifact) Dimensions() int { return len(a.Weights[0]) }

// Predict scores a vector against every class and returns the winner.
func (a *Artifact) Predict(vector []float64) Prediction {
	scaled := vector
	if len(a.ScalerMean) > 0 {
		scaled = make([]float64, len(vector))
		for i := range vector {
			std := a.ScalerStd[i]
			if std == 0 {
				std = 1
			}
			scaled[i] = (vector[i] - a.ScalerMean[i]) / std
		}
	}

	scores := make([]float64, len(a.Weights))
	for c, row := range a.Weights {
		score := a.Bias[c]
		for i, w := range row {
			score += w * scaled[i]
		}
		scores[c] = score
	}

	best := 0
	for c := range scores {
		if scores[c] > scores[best] {
			best = c
		}
	}

	confidence := 1.0
	if !a.HardOnly {
		confidence = softmax(scores)[best]
	}
	return Prediction{Label: a.labelFor(best), Confidence: confidence}
}

func (a *Artifact) labelFor(class int) string {
	if class < len(a.Labels) && a.Labels[class] != "" {
		return a.Labels[class]
	}
	return strconv.Itoa(class)
}

func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// TrainedModel classifies with a lazily loaded artifact. Load failures are
// retried by the provider with backoff; while the artifact is absent every
// call fails with ErrModelUnavailable so the worker can hold tasks back
// instead of failing them.
type TrainedModel struct {
	provider *Provider
}

// NewTrainedModel builds the strategy around an artifact provider.
func NewTrainedModel(provider *Provider) *TrainedModel {
	return &TrainedModel{provider: provider}
}

func (m *TrainedModel) Name() string { return "trained-model" }

func (m *TrainedModel) Classify(ctx context.Context, vector []float64) (Prediction, error) {
	artifact, err := m.provider.Artifact(ctx)
	if err != nil {
		return Prediction{}, Wrap(ErrModelUnavailable, "trained-model", "load artifact", err)
	}
	if err := validateVector(vector, artifact.Dimensions()); err != nil {
		return Prediction{}, err
	}
	return artifact.Predict(vector), nil
}
