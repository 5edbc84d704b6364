package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const taskColumns = "id, blob_id, filename, source, status, error_message, label, confidence, created_at, updated_at, last_heartbeat"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id               string
		blobID           string
		filename         sql.NullString
		source           sql.NullString
		statusStr        string
		errorMessage     sql.NullString
		label            sql.NullString
		confidence       sql.NullFloat64
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&blobID,
		&filename,
		&source,
		&statusStr,
		&errorMessage,
		&label,
		&confidence,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:           id,
		BlobID:       blobID,
		Filename:     filename.String,
		Source:       ParseSource(source.String),
		Status:       Status(statusStr),
		ErrorMessage: errorMessage.String,
		Label:        label.String,
		Confidence:   confidence.Float64,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			task.LastHeartbeat = &heartbeat
		}
	}
	return task, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeFormat is fixed width so timestamp TEXT columns order lexically;
// RFC3339Nano trims trailing zeros and would sort ".15Z" before ".1Z".
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func parseTimeString(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	parsed, err := time.Parse(time.RFC3339Nano, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", trimmed, err)
	}
	return parsed.UTC(), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func marshalFingerprint(fp []float64) (string, error) {
	data, err := json.Marshal(fp)
	if err != nil {
		return "", fmt.Errorf("marshal fingerprint: %w", err)
	}
	return string(data), nil
}

func unmarshalFingerprint(raw string) ([]float64, error) {
	var fp []float64
	if err := json.Unmarshal([]byte(raw), &fp); err != nil {
		return nil, fmt.Errorf("unmarshal fingerprint: %w", err)
	}
	return fp, nil
}
