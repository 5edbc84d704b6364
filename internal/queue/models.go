package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a classification task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Source records how a task's audio entered the system.
type Source string

const (
	SourceUpload    Source = "upload"
	SourceRecording Source = "recording"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusDone,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Task represents one audio clip awaiting classification.
type Task struct {
	ID            string
	BlobID        string
	Filename      string
	Source        Source
	Status        Status
	ErrorMessage  string
	Label         string
	Confidence    float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastHeartbeat *time.Time
}

// Result is the write-once classification outcome for a completed task.
type Result struct {
	ID         int64
	TaskID     string
	Label      string
	Confidence float64
	CreatedAt  time.Time
}

// Reference is a labeled fingerprint used as a comparison basis for
// nearest-reference classification.
type Reference struct {
	ID          int64
	Label       string
	Fingerprint []float64
	CreatedAt   time.Time
}

// HealthSummary describes aggregated task counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Done       int
	Errored    int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseSource converts a string into a known Source, defaulting to upload.
func ParseSource(value string) Source {
	if strings.EqualFold(strings.TrimSpace(value), string(SourceRecording)) {
		return SourceRecording
	}
	return SourceUpload
}

// IsTerminal reports whether a status ends the task lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}
