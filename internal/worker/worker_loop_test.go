package worker

import (
	"context"
	"testing"
	"time"

	"cadence/internal/blob"
	"cadence/internal/classify"
	"cadence/internal/features"
	"cadence/internal/queue"
	"cadence/internal/testsupport"
	"cadence/internal/wavio"
)

// TestIdleBackoffResetsAfterProcessedTask drives the real loop through
// idle growth, one processed task, and back to idle, observing every
// delay through the sleep seam. The loop blocks handing each delay over,
// so the test steps it tick by tick without real waiting.
func TestIdleBackoffResetsAfterProcessedTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Worker.PollInterval = 1
	cfg.Worker.MaxIdleBackoff = 30
	store := testsupport.MustOpenStore(t, cfg)
	blobs := testsupport.MustOpenBlobStore(t, cfg)

	extractor, err := features.ForConfig(cfg)
	if err != nil {
		t.Fatalf("features.ForConfig: %v", err)
	}
	classifier, err := classify.ForConfig(cfg, store)
	if err != nil {
		t.Fatalf("classify.ForConfig: %v", err)
	}
	w := New(cfg, store, blobs, extractor, classifier, nil)

	delays := make(chan time.Duration)
	w.sleep = func(ctx context.Context, delay time.Duration) bool {
		select {
		case delays <- delay:
			return true
		case <-ctx.Done():
			return false
		}
	}

	ctx := context.Background()
	tone := testsupport.SineWAV(t, 3000, 22050, 1.0)
	clip, err := wavio.DecodeMono(tone)
	if err != nil {
		t.Fatalf("wavio.DecodeMono: %v", err)
	}
	vec, err := extractor.Extract(clip)
	if err != nil {
		t.Fatalf("extractor.Extract: %v", err)
	}
	if _, err := store.AddReference(ctx, "electronic", vec); err != nil {
		t.Fatalf("AddReference: %v", err)
	}
	blobID, err := blobs.Put(ctx, tone, blob.Metadata{Filename: "tone.wav"})
	if err != nil {
		t.Fatalf("blobs.Put: %v", err)
	}

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)

	next := func() time.Duration {
		t.Helper()
		select {
		case d := <-delays:
			return d
		case <-time.After(10 * time.Second):
			t.Fatal("worker loop stalled")
			return 0
		}
	}

	if d := next(); d != 1*time.Second {
		t.Fatalf("first idle delay = %v, want 1s", d)
	}
	if d := next(); d != 2*time.Second {
		t.Fatalf("second idle delay = %v, want 2s", d)
	}

	// The loop is parked handing over the third idle delay; enqueue now
	// so the very next claim finds the task.
	task := testsupport.NewTask(t, store, blobID, "tone.wav")
	if d := next(); d != 3*time.Second {
		t.Fatalf("third idle delay = %v, want 3s", d)
	}

	// The loop claimed and processed the task, then found the queue
	// empty again. The idle delay must restart at one poll interval.
	if d := next(); d != 1*time.Second {
		t.Fatalf("idle delay after processed task = %v, want reset to 1s", d)
	}

	got, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusDone {
		t.Fatalf("status = %s (%s), want done", got.Status, got.ErrorMessage)
	}
}
