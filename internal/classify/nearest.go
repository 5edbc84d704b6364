package classify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cadence/internal/dsp"
	"cadence/internal/queue"
)

// similarityFloor discards reference matches with no meaningful overlap so
// a corpus of orthogonal references cannot manufacture confidence.
const similarityFloor = 1e-9

// NearestReference classifies by cosine similarity against the labeled
// reference corpus: similarities are summed per label and the label with
// the largest sum wins. Confidence is that label's share of the total
// positive similarity mass.
//
// The corpus is cached between calls and refreshed at most once per
// refresh interval, so steady-state classification does not hit the store.
type NearestReference struct {
	corpus  CorpusSource
	refresh time.Duration

	mu        sync.Mutex
	refs      []queue.Reference
	fetchedAt time.Time
}

// NewNearestReference builds the strategy. A refresh of 0 disables caching
// and reloads the corpus on every call.
func NewNearestReference(corpus CorpusSource, refresh time.Duration) *NearestReference {
	return &NearestReference{corpus: corpus, refresh: refresh}
}

func (n *NearestReference) Name() string { return "nearest-reference" }

func (n *NearestReference) Classify(ctx context.Context, vector []float64) (Prediction, error) {
	refs, err := n.references(ctx)
	if err != nil {
		return Prediction{}, err
	}
	if len(refs) == 0 {
		return Prediction{}, Wrap(ErrNoReferenceData, "nearest-reference", "reference corpus is empty", nil)
	}
	if err := validateVector(vector, len(refs[0].Fingerprint)); err != nil {
		return Prediction{}, err
	}

	// Insertion order of the corpus decides ties, so iteration tracks the
	// first label to reach the winning sum.
	sums := make(map[string]float64)
	order := make([]string, 0, 8)
	var total float64
	for _, ref := range refs {
		sim := dsp.CosineSimilarity(vector, ref.Fingerprint)
		if sim <= similarityFloor {
			continue
		}
		if _, seen := sums[ref.Label]; !seen {
			order = append(order, ref.Label)
		}
		sums[ref.Label] += sim
		total += sim
	}
	if total <= similarityFloor {
		return Prediction{}, Wrap(ErrNoSimilarity, "nearest-reference",
			"vector matches no reference", nil)
	}

	var best string
	var bestSum float64
	for _, label := range order {
		if sums[label] > bestSum {
			best = label
			bestSum = sums[label]
		}
	}
	return Prediction{Label: best, Confidence: bestSum / total}, nil
}

// Invalidate drops the cached corpus so the next call reloads it. Seeding
// tools call this after inserting references.
func (n *NearestReference) Invalidate() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refs = nil
	n.fetchedAt = time.Time{}
}

func (n *NearestReference) references(ctx context.Context) ([]queue.Reference, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.refs != nil && n.refresh > 0 && time.Since(n.fetchedAt) < n.refresh {
		return n.refs, nil
	}
	refs, err := n.corpus.References(ctx)
	if err != nil {
		// Serve the stale cache over failing the task when the store
		// hiccups mid-refresh.
		if n.refs != nil {
			return n.refs, nil
		}
		return nil, fmt.Errorf("load reference corpus: %w", err)
	}
	n.refs = refs
	n.fetchedAt = time.Now()
	return n.refs, nil
}
