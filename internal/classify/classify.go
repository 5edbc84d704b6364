package classify

import (
	"context"
	"fmt"
	"math"
	"time"

	"cadence/internal/config"
	"cadence/internal/queue"
)

// Prediction is the outcome of classifying one feature vector.
type Prediction struct {
	Label      string
	Confidence float64
}

// Classifier assigns a label and confidence to a feature vector.
type Classifier interface {
	// Name identifies the strategy for logs and stored results.
	Name() string
	// Classify predicts a label for the vector. Errors are tagged with
	// the package sentinel errors so callers can distinguish fatal
	// misconfiguration from retryable data problems.
	Classify(ctx context.Context, vector []float64) (Prediction, error)
}

// CorpusSource provides labeled reference fingerprints. *queue.Store
// satisfies it.
type CorpusSource interface {
	References(ctx context.Context) ([]queue.Reference, error)
}

// ForConfig builds the classifier selected by the configuration, reading
// reference data from corpus where the strategy needs it.
func ForConfig(cfg *config.Config, corpus CorpusSource) (Classifier, error) {
	switch cfg.Classifier.Strategy {
	case config.StrategyNearestReference:
		refresh := time.Duration(cfg.Classifier.CorpusRefreshSecs) * time.Second
		return NewNearestReference(corpus, refresh), nil
	case config.StrategyTrainedModel:
		return NewTrainedModel(NewProvider(
			cfg.Classifier.ModelPath,
			time.Duration(cfg.Classifier.ModelRetryBase)*time.Second,
			time.Duration(cfg.Classifier.ModelRetryMax)*time.Second,
		)), nil
	default:
		return nil, fmt.Errorf("unknown classifier strategy %q", cfg.Classifier.Strategy)
	}
}

// validateVector rejects vectors whose length differs from want or that
// contain non-finite components. A want of 0 skips the length check.
func validateVector(vector []float64, want int) error {
	if len(vector) == 0 {
		return Wrap(ErrInvalidVector, "validate", "empty vector", nil)
	}
	if want > 0 && len(vector) != want {
		return Wrap(ErrInvalidVector, "validate",
			fmt.Sprintf("vector length %d, expected %d", len(vector), want), nil)
	}
	for i, x := range vector {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Wrap(ErrInvalidVector, "validate",
				fmt.Sprintf("non-finite component at index %d", i), nil)
		}
	}
	return nil
}
