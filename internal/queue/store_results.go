package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ResultForTask returns the classification result for a task, or (nil, nil)
// when the task has not completed.
func (s *Store) ResultForTask(ctx context.Context, taskID string) (*Result, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, task_id, label, confidence, created_at FROM results WHERE task_id = ?`,
		taskID,
	)
	result, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

// RecentResults returns the newest results first, bounded by limit.
func (s *Store) RecentResults(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, task_id, label, confidence, created_at
         FROM results ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, rows.Err()
}

// LabelCounts aggregates completed classifications per label.
func (s *Store) LabelCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT label, COUNT(1) FROM results GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("query label counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("scan label count: %w", err)
		}
		counts[label] = count
	}
	return counts, rows.Err()
}

func scanResult(scanner interface{ Scan(dest ...any) error }) (*Result, error) {
	var (
		result     Result
		createdRaw string
	)
	if err := scanner.Scan(&result.ID, &result.TaskID, &result.Label, &result.Confidence, &createdRaw); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		result.CreatedAt = created
	}
	return &result, nil
}
