package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cadence/internal/queue"
	"cadence/internal/testsupport"
)

func TestNewTaskAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	task, err := store.NewTask(ctx, "blob-1", "song.wav", queue.SourceUpload)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected task ID to be assigned")
	}
	if task.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", task.Status)
	}

	fetched, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched == nil || fetched.BlobID != "blob-1" || fetched.Filename != "song.wav" {
		t.Fatalf("unexpected fetched task: %#v", fetched)
	}
}

func TestNewTaskRequiresBlobID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewTask(context.Background(), "", "x.wav", queue.SourceUpload); err == nil {
		t.Fatal("expected error when blob id missing")
	}
}

func TestClaimNextPendingTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	task := testsupport.NewTask(t, store, "blob-1", "a.wav")

	claimed, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if claimed == nil || claimed.ID != task.ID {
		t.Fatalf("expected to claim %s, got %#v", task.ID, claimed)
	}
	if claimed.Status != queue.StatusProcessing {
		t.Fatalf("expected processing status, got %s", claimed.Status)
	}
	if claimed.LastHeartbeat == nil {
		t.Fatal("expected heartbeat set on claim")
	}

	again, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if again != nil {
		t.Fatalf("expected no claimable task, got %#v", again)
	}
}

func TestClaimNextPendingEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	task, err := store.ClaimNextPending(context.Background())
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil task for empty queue, got %#v", task)
	}
}

func TestClaimExclusivity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewTask(t, store, "blob-race", "race.wav")

	const claimants = 8
	var wg sync.WaitGroup
	claims := make(chan *queue.Task, claimants)
	start := make(chan struct{})

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			task, err := store.ClaimNextPending(ctx)
			if err != nil {
				t.Errorf("ClaimNextPending: %v", err)
				return
			}
			if task != nil {
				claims <- task
			}
		}()
	}
	close(start)
	wg.Wait()
	close(claims)

	var winners int
	for range claims {
		winners++
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", winners)
	}
}

func TestReleaseReturnsClaimedTaskToPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	task := testsupport.NewTask(t, store, "blob-1", "a.wav")

	claimed, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if err := store.Release(ctx, claimed.ID); err != nil {
		t.Fatalf("Release: %v", err)
	}

	released, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if released.Status != queue.StatusPending {
		t.Fatalf("expected pending after release, got %s", released.Status)
	}
	if released.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared on release")
	}

	again, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("reclaim after release: %v", err)
	}
	if again == nil || again.ID != task.ID {
		t.Fatalf("expected released task to be claimable, got %#v", again)
	}

	// Releasing a terminal task leaves it untouched.
	if err := store.MarkDone(ctx, task.ID, "electronic", 0.9); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if err := store.Release(ctx, task.ID); err != nil {
		t.Fatalf("Release on done task: %v", err)
	}
	final, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Status != queue.StatusDone {
		t.Fatalf("expected done to survive release, got %s", final.Status)
	}
}

func TestMarkDoneRecordsResultOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	task := testsupport.NewTask(t, store, "blob-1", "a.wav")
	if _, err := store.ClaimNextPending(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := store.MarkDone(ctx, task.ID, "electronic", 0.87); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	updated, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != queue.StatusDone || updated.Label != "electronic" {
		t.Fatalf("unexpected task after done: %#v", updated)
	}

	result, err := store.ResultForTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("ResultForTask: %v", err)
	}
	if result == nil || result.Label != "electronic" || result.Confidence != 0.87 {
		t.Fatalf("unexpected result: %#v", result)
	}

	if err := store.MarkDone(ctx, task.ID, "electronic", 0.87); err == nil {
		t.Fatal("expected second MarkDone to fail")
	}
}

func TestMarkErrorIsTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	task := testsupport.NewTask(t, store, "blob-1", "a.wav")
	if _, err := store.ClaimNextPending(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := store.MarkError(ctx, task.ID, "blob missing"); err != nil {
		t.Fatalf("MarkError: %v", err)
	}

	updated, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != queue.StatusError || updated.ErrorMessage != "blob missing" {
		t.Fatalf("unexpected task after error: %#v", updated)
	}

	result, err := store.ResultForTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("ResultForTask: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result for errored task, got %#v", result)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	task := testsupport.NewTask(t, store, "blob-1", "a.wav")
	if _, err := store.ClaimNextPending(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Heartbeat is fresh, nothing should be reclaimed.
	count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no reclaimed tasks, got %d", count)
	}

	count, err = store.ReclaimStaleProcessing(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one reclaimed task, got %d", count)
	}

	updated, err := store.GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending after reclaim, got %s", updated.Status)
	}
	if updated.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared after reclaim")
	}
}

func TestRetryErrored(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var errored []*queue.Task
	for i := 0; i < 3; i++ {
		task := testsupport.NewTask(t, store, fmt.Sprintf("blob-%d", i), fmt.Sprintf("f%d.wav", i))
		if _, err := store.ClaimNextPending(ctx); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := store.MarkError(ctx, task.ID, "boom"); err != nil {
			t.Fatalf("MarkError: %v", err)
		}
		errored = append(errored, task)
	}

	count, err := store.RetryErrored(ctx, errored[0].ID)
	if err != nil {
		t.Fatalf("RetryErrored selected: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one retried task, got %d", count)
	}

	count, err = store.RetryErrored(ctx)
	if err != nil {
		t.Fatalf("RetryErrored all: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected two retried tasks, got %d", count)
	}

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if summary.Pending != 3 || summary.Errored != 0 {
		t.Fatalf("unexpected health after retry: %#v", summary)
	}
}

func TestReferenceCorpusRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.AddReference(ctx, "Vocal", []float64{0.6, 0.8}); err != nil {
		t.Fatalf("AddReference: %v", err)
	}
	if _, err := store.AddReference(ctx, "electronic", []float64{1, 0}); err != nil {
		t.Fatalf("AddReference: %v", err)
	}

	refs, err := store.References(ctx)
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected two references, got %d", len(refs))
	}
	if refs[0].Label != "vocal" {
		t.Fatalf("expected lowercased label, got %q", refs[0].Label)
	}
	if len(refs[0].Fingerprint) != 2 || refs[0].Fingerprint[0] != 0.6 {
		t.Fatalf("fingerprint round trip failed: %#v", refs[0].Fingerprint)
	}

	count, err := store.CountReferences(ctx)
	if err != nil {
		t.Fatalf("CountReferences: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestRecentResultsAndLabelCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	labels := []string{"rock", "hiphop", "rock"}
	for i, label := range labels {
		task := testsupport.NewTask(t, store, fmt.Sprintf("blob-%d", i), fmt.Sprintf("f%d.wav", i))
		if _, err := store.ClaimNextPending(ctx); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if err := store.MarkDone(ctx, task.ID, label, 0.9); err != nil {
			t.Fatalf("MarkDone: %v", err)
		}
	}

	results, err := store.RecentResults(ctx, 2)
	if err != nil {
		t.Fatalf("RecentResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected limit of 2 results, got %d", len(results))
	}

	counts, err := store.LabelCounts(ctx)
	if err != nil {
		t.Fatalf("LabelCounts: %v", err)
	}
	if counts["rock"] != 2 || counts["hiphop"] != 1 {
		t.Fatalf("unexpected label counts: %#v", counts)
	}
}
