package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"cadence/internal/api"
	"cadence/internal/queue"
	"cadence/internal/testsupport"
)

type fixture struct {
	store   *queue.Store
	baseURL string
	client  *http.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	blobs := testsupport.MustOpenBlobStore(t, cfg)

	srv := api.New(cfg, store, blobs, nil)
	if srv == nil {
		t.Fatal("api.New returned nil for a bound address")
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("srv.Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})

	return &fixture{
		store:   store,
		baseURL: "http://" + srv.Addr(),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (f *fixture) getJSON(t *testing.T, path string, status int, out any) {
	t.Helper()
	resp, err := f.client.Get(f.baseURL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != status {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status %d, want %d (%s)", path, resp.StatusCode, status, body)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
}

func (f *fixture) upload(t *testing.T, filename string, payload []byte) api.UploadResponse {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	resp, err := f.client.Post(f.baseURL+"/api/upload", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /api/upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status %d: %s", resp.StatusCode, raw)
	}
	var accepted api.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return accepted
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)
	var health api.HealthResponse
	f.getJSON(t, "/api/health", http.StatusOK, &health)
	if health.Status != "ok" {
		t.Fatalf("health status = %q, want ok", health.Status)
	}
}

func TestUploadEnqueuesPendingTask(t *testing.T) {
	f := newFixture(t)
	wav := testsupport.SineWAV(t, 440, 22050, 0.25)

	accepted := f.upload(t, "clip.wav", wav)
	if accepted.TaskID == "" || accepted.BlobID == "" {
		t.Fatalf("incomplete upload response: %+v", accepted)
	}
	if accepted.Status != string(queue.StatusPending) {
		t.Fatalf("upload status = %q, want pending", accepted.Status)
	}

	task, err := f.store.GetByID(context.Background(), accepted.TaskID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if task == nil || task.Status != queue.StatusPending {
		t.Fatalf("task = %+v, want pending", task)
	}
	if task.Filename != "clip.wav" {
		t.Fatalf("filename = %q, want clip.wav", task.Filename)
	}
}

func TestUploadRejectsEmptyAndMissingFile(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.Close()
	resp, err := f.client.Post(f.baseURL+"/api/upload", writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing file status = %d, want 400", resp.StatusCode)
	}
}

func TestTaskAndResultEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	accepted := f.upload(t, "clip.wav", testsupport.SineWAV(t, 440, 22050, 0.25))

	claimed, err := f.store.ClaimNextPending(ctx)
	if err != nil || claimed == nil {
		t.Fatalf("ClaimNextPending: %v %v", claimed, err)
	}
	if err := f.store.MarkDone(ctx, claimed.ID, "electronic", 0.87); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	var task api.TaskResponse
	f.getJSON(t, "/api/tasks/"+accepted.TaskID, http.StatusOK, &task)
	if task.Task.Status != string(queue.StatusDone) || task.Task.Label != "electronic" {
		t.Fatalf("task payload = %+v", task.Task)
	}
	if task.Result == nil || task.Result.Confidence != 0.87 {
		t.Fatalf("result payload = %+v", task.Result)
	}

	var results api.ResultListResponse
	f.getJSON(t, "/api/results?limit=5", http.StatusOK, &results)
	if len(results.Results) != 1 || results.Results[0].Label != "electronic" {
		t.Fatalf("results payload = %+v", results.Results)
	}

	f.getJSON(t, "/api/tasks/does-not-exist", http.StatusNotFound, nil)
}

func TestTaskListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	wav := testsupport.SineWAV(t, 440, 22050, 0.25)

	for i := 0; i < 3; i++ {
		f.upload(t, fmt.Sprintf("clip-%d.wav", i), wav)
	}

	var pending api.TaskListResponse
	f.getJSON(t, "/api/tasks?status=pending", http.StatusOK, &pending)
	if len(pending.Tasks) != 3 {
		t.Fatalf("pending tasks = %d, want 3", len(pending.Tasks))
	}

	var done api.TaskListResponse
	f.getJSON(t, "/api/tasks?status=done", http.StatusOK, &done)
	if len(done.Tasks) != 0 {
		t.Fatalf("done tasks = %d, want 0", len(done.Tasks))
	}

	f.getJSON(t, "/api/tasks?status=bogus", http.StatusBadRequest, nil)
}

func TestStatsEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upload(t, "clip.wav", testsupport.SineWAV(t, 440, 22050, 0.25))
	if _, err := f.store.AddReference(ctx, "vocal", []float64{1, 0}); err != nil {
		t.Fatalf("AddReference: %v", err)
	}

	var stats api.StatsResponse
	f.getJSON(t, "/api/stats", http.StatusOK, &stats)
	if stats.Pending != 1 {
		t.Fatalf("pending = %d, want 1", stats.Pending)
	}
	if stats.ReferenceCount != 1 {
		t.Fatalf("reference count = %d, want 1", stats.ReferenceCount)
	}
}
