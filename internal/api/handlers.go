package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cadence/internal/blob"
	"cadence/internal/logging"
	"cadence/internal/queue"
)

// maxUploadBytes bounds a single multipart upload. WAV clips for
// classification are short; anything larger is rejected outright.
const maxUploadBytes = 64 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.store.Ping(r.Context(), s.pingTimeout); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "degraded",
			Detail: err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	summary, err := s.store.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	labels, err := s.store.LabelCounts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	refs, err := s.store.CountReferences(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, StatsResponse{
		Pending:        summary.Pending,
		Processing:     summary.Processing,
		Done:           summary.Done,
		Errored:        summary.Errored,
		LabelCounts:    labels,
		ReferenceCount: refs,
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := s.store.RecentResults(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]ResultPayload, 0, len(results))
	for _, result := range results {
		payload = append(payload, resultPayload(result))
	}
	s.writeJSON(w, http.StatusOK, ResultListResponse{Results: payload})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		status, ok := queue.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(value))
			return
		}
		statuses = append(statuses, status)
	}

	tasks, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := make([]TaskPayload, 0, len(tasks))
	for _, task := range tasks {
		payload = append(payload, taskPayload(task))
	}
	s.writeJSON(w, http.StatusOK, TaskListResponse{Tasks: payload})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	task, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if task == nil {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}

	response := TaskResponse{Task: taskPayload(task)}
	result, err := s.store.ResultForTask(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result != nil {
		payload := resultPayload(*result)
		response.Result = &payload
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "parse upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	blobID, err := s.blobs.Put(r.Context(), data, blob.Metadata{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "store upload: "+err.Error())
		return
	}

	source := queue.ParseSource(r.FormValue("source"))
	task, err := s.store.NewTask(r.Context(), blobID, header.Filename, source)
	if err != nil {
		// Drop the orphaned blob so a queue outage does not leak storage.
		if delErr := s.blobs.Delete(r.Context(), blobID); delErr != nil && !errors.Is(delErr, blob.ErrNotFound) {
			s.logger.Warn("failed to delete orphaned blob",
				logging.String(logging.FieldBlobID, blobID),
				logging.Error(delErr),
			)
		}
		s.writeError(w, http.StatusInternalServerError, "enqueue task: "+err.Error())
		return
	}

	logging.WithContext(r.Context(), s.logger).Info("upload accepted",
		logging.String(logging.FieldTaskID, task.ID),
		logging.String(logging.FieldBlobID, blobID),
		logging.String("filename", header.Filename),
		logging.Int("bytes", len(data)),
		logging.String(logging.FieldEventType, "upload_accepted"),
	)
	s.writeJSON(w, http.StatusCreated, UploadResponse{
		TaskID: task.ID,
		BlobID: blobID,
		Status: string(task.Status),
	})
}

func taskPayload(task *queue.Task) TaskPayload {
	payload := TaskPayload{
		ID:            task.ID,
		BlobID:        task.BlobID,
		Filename:      task.Filename,
		Source:        string(task.Source),
		Status:        string(task.Status),
		ErrorMessage:  task.ErrorMessage,
		Label:         task.Label,
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
		LastHeartbeat: task.LastHeartbeat,
	}
	if task.Status == queue.StatusDone {
		confidence := task.Confidence
		payload.Confidence = &confidence
	}
	return payload
}

func resultPayload(result queue.Result) ResultPayload {
	return ResultPayload{
		TaskID:     result.TaskID,
		Label:      result.Label,
		Confidence: result.Confidence,
		CreatedAt:  result.CreatedAt,
	}
}
