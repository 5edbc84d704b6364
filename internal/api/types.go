package api

import "time"

// TaskPayload is the wire representation of a queued task.
type TaskPayload struct {
	ID            string     `json:"id"`
	BlobID        string     `json:"blob_id"`
	Filename      string     `json:"filename"`
	Source        string     `json:"source"`
	Status        string     `json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	Label         string     `json:"label,omitempty"`
	Confidence    *float64   `json:"confidence,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
}

// ResultPayload is the wire representation of a stored classification.
type ResultPayload struct {
	TaskID     string    `json:"task_id"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// TaskListResponse wraps the task listing endpoint payload.
type TaskListResponse struct {
	Tasks []TaskPayload `json:"tasks"`
}

// TaskResponse wraps a single task with its result when present.
type TaskResponse struct {
	Task   TaskPayload    `json:"task"`
	Result *ResultPayload `json:"result,omitempty"`
}

// ResultListResponse wraps the recent results payload.
type ResultListResponse struct {
	Results []ResultPayload `json:"results"`
}

// StatsResponse aggregates queue and corpus counters for dashboards.
type StatsResponse struct {
	Pending        int            `json:"pending"`
	Processing     int            `json:"processing"`
	Done           int            `json:"done"`
	Errored        int            `json:"errored"`
	LabelCounts    map[string]int `json:"label_counts"`
	ReferenceCount int            `json:"reference_count"`
}

// HealthResponse reports liveness of the service and its store.
type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// UploadResponse acknowledges an accepted audio upload.
type UploadResponse struct {
	TaskID string `json:"task_id"`
	BlobID string `json:"blob_id"`
	Status string `json:"status"`
}
