package classify_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"cadence/internal/classify"
	"cadence/internal/queue"
)

type staticCorpus struct {
	refs []queue.Reference
	err  error
	hits int
}

func (c *staticCorpus) References(ctx context.Context) ([]queue.Reference, error) {
	c.hits++
	if c.err != nil {
		return nil, c.err
	}
	return c.refs, nil
}

func vocalElectronicCorpus() *staticCorpus {
	return &staticCorpus{refs: []queue.Reference{
		{ID: 1, Label: "vocal", Fingerprint: []float64{1, 0, 0}},
		{ID: 2, Label: "vocal", Fingerprint: []float64{0.9, 0.1, 0}},
		{ID: 3, Label: "electronic", Fingerprint: []float64{0, 1, 0.1}},
		{ID: 4, Label: "electronic", Fingerprint: []float64{0, 0.9, 0.2}},
	}}
}

func TestNearestReferencePicksDominantLabel(t *testing.T) {
	nr := classify.NewNearestReference(vocalElectronicCorpus(), time.Minute)

	pred, err := nr.Classify(context.Background(), []float64{0, 0.95, 0.15})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if pred.Label != "electronic" {
		t.Fatalf("label = %q, want electronic", pred.Label)
	}
	if pred.Confidence <= 0.5 || pred.Confidence > 1 {
		t.Fatalf("confidence = %v, want in (0.5, 1]", pred.Confidence)
	}
}

func TestNearestReferenceEmptyCorpus(t *testing.T) {
	nr := classify.NewNearestReference(&staticCorpus{}, time.Minute)
	_, err := nr.Classify(context.Background(), []float64{1, 0, 0})
	if !errors.Is(err, classify.ErrNoReferenceData) {
		t.Fatalf("err = %v, want ErrNoReferenceData", err)
	}
}

func TestNearestReferenceRejectsBadVectors(t *testing.T) {
	nr := classify.NewNearestReference(vocalElectronicCorpus(), time.Minute)
	for name, vec := range map[string][]float64{
		"empty":      {},
		"wrong size": {1, 0},
		"nan":        {math.NaN(), 0, 0},
	} {
		if _, err := nr.Classify(context.Background(), vec); !errors.Is(err, classify.ErrInvalidVector) {
			t.Fatalf("%s: err = %v, want ErrInvalidVector", name, err)
		}
	}
}

func TestNearestReferenceSilentVectorIsNotInvalid(t *testing.T) {
	nr := classify.NewNearestReference(vocalElectronicCorpus(), time.Minute)

	// A silent clip extracts to all zeros: well-formed, but similar to
	// nothing. That must not read as a malformed vector.
	for name, vec := range map[string][]float64{
		"silence":    {0, 0, 0},
		"orthogonal": {0, 0, -1},
	} {
		_, err := nr.Classify(context.Background(), vec)
		if !errors.Is(err, classify.ErrNoSimilarity) {
			t.Fatalf("%s: err = %v, want ErrNoSimilarity", name, err)
		}
		if errors.Is(err, classify.ErrInvalidVector) {
			t.Fatalf("%s: err %v must not be tagged ErrInvalidVector", name, err)
		}
	}
}

func TestNearestReferenceCachesCorpus(t *testing.T) {
	corpus := vocalElectronicCorpus()
	nr := classify.NewNearestReference(corpus, time.Hour)

	for i := 0; i < 5; i++ {
		if _, err := nr.Classify(context.Background(), []float64{1, 0, 0}); err != nil {
			t.Fatalf("Classify %d: %v", i, err)
		}
	}
	if corpus.hits != 1 {
		t.Fatalf("corpus loaded %d times, want 1", corpus.hits)
	}

	nr.Invalidate()
	if _, err := nr.Classify(context.Background(), []float64{1, 0, 0}); err != nil {
		t.Fatalf("Classify after invalidate: %v", err)
	}
	if corpus.hits != 2 {
		t.Fatalf("corpus loaded %d times after invalidate, want 2", corpus.hits)
	}
}

func TestNearestReferenceServesStaleCacheOnRefreshError(t *testing.T) {
	corpus := vocalElectronicCorpus()
	nr := classify.NewNearestReference(corpus, time.Nanosecond)

	if _, err := nr.Classify(context.Background(), []float64{1, 0, 0}); err != nil {
		t.Fatalf("warm-up Classify: %v", err)
	}

	corpus.err = errors.New("store offline")
	time.Sleep(2 * time.Nanosecond)
	pred, err := nr.Classify(context.Background(), []float64{1, 0, 0})
	if err != nil {
		t.Fatalf("Classify with stale cache: %v", err)
	}
	if pred.Label != "vocal" {
		t.Fatalf("label = %q, want vocal", pred.Label)
	}
}

func TestArtifactRoundTripAndPredict(t *testing.T) {
	vectors := [][]float64{
		{1, 0}, {0.9, 0.1}, {0.8, 0.05},
		{0, 1}, {0.1, 0.9}, {0.05, 0.85},
	}
	labels := []string{"vocal", "vocal", "vocal", "electronic", "electronic", "electronic"}

	artifact, err := classify.Train(vectors, labels, classify.DefaultTrainOptions())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	path := filepath.Join(t.TempDir(), "classifier.gob")
	if err := classify.SaveArtifact(path, artifact); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}
	loaded, err := classify.LoadArtifact(path)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}

	pred := loaded.Predict([]float64{0.95, 0.02})
	if pred.Label != "vocal" {
		t.Fatalf("label = %q, want vocal", pred.Label)
	}
	if pred.Confidence <= 0.5 || pred.Confidence > 1 {
		t.Fatalf("confidence = %v, want in (0.5, 1]", pred.Confidence)
	}

	pred = loaded.Predict([]float64{0.05, 0.9})
	if pred.Label != "electronic" {
		t.Fatalf("label = %q, want electronic", pred.Label)
	}
}

func TestArtifactHardOnlyReportsFullConfidence(t *testing.T) {
	artifact := &classify.Artifact{
		Weights:  [][]float64{{1, 0}, {0, 1}},
		Bias:     []float64{0, 0},
		Labels:   []string{"vocal", "electronic"},
		HardOnly: true,
	}
	pred := artifact.Predict([]float64{0.2, 0.8})
	if pred.Label != "electronic" || pred.Confidence != 1 {
		t.Fatalf("prediction = %+v, want electronic with confidence 1", pred)
	}
}

func TestArtifactFallsBackToClassIndex(t *testing.T) {
	artifact := &classify.Artifact{
		Weights: [][]float64{{1, 0}, {0, 1}},
		Bias:    []float64{0, 0},
	}
	pred := artifact.Predict([]float64{0, 1})
	if pred.Label != "1" {
		t.Fatalf("label = %q, want fallback index \"1\"", pred.Label)
	}
}

func TestTrainedModelUnavailableArtifact(t *testing.T) {
	provider := classify.NewProvider(filepath.Join(t.TempDir(), "missing.gob"), time.Second, time.Second)
	model := classify.NewTrainedModel(provider)

	_, err := model.Classify(context.Background(), []float64{1, 0})
	if !errors.Is(err, classify.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestProviderBacksOffBetweenLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.gob")
	provider := classify.NewProvider(path, time.Hour, time.Hour)

	if _, err := provider.Artifact(context.Background()); err == nil {
		t.Fatal("expected load failure")
	}
	_, err := provider.Artifact(context.Background())
	if err == nil {
		t.Fatal("expected suppressed failure during backoff")
	}

	artifact := &classify.Artifact{
		Weights: [][]float64{{1}, {0}},
		Bias:    []float64{0, 0},
		Labels:  []string{"a", "b"},
	}
	if err := classify.SaveArtifact(path, artifact); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}
	provider.Invalidate()
	if _, err := provider.Artifact(context.Background()); err != nil {
		t.Fatalf("Artifact after invalidate: %v", err)
	}
}

func TestTrainRejectsDegenerateInput(t *testing.T) {
	if _, err := classify.Train(nil, nil, classify.DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for empty training set")
	}
	if _, err := classify.Train([][]float64{{1}}, []string{"only"}, classify.DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for single-label training set")
	}
}
