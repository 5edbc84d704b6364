package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewTask inserts a pending classification task for an uploaded blob.
func (s *Store) NewTask(ctx context.Context, blobID, filename string, source Source) (*Task, error) {
	if blobID == "" {
		return nil, errors.New("blob id must not be empty")
	}
	now := formatTime(time.Now())
	id := uuid.NewString()

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO tasks (id, blob_id, filename, source, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		blobID,
		nullableString(filename),
		source,
		StatusPending,
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a task by identifier. A missing task returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ClaimNextPending atomically transitions one pending task to processing and
// returns it. The claim is a single read-modify-write statement, so two
// concurrent workers can never receive the same task. Tasks are picked
// oldest-first as a best effort; strict creation order across concurrent
// claimants is deliberately not guaranteed.
//
// When no pending task exists the method returns (nil, nil).
func (s *Store) ClaimNextPending(ctx context.Context) (*Task, error) {
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())

	var (
		task    *Task
		scanErr error
	)
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`UPDATE tasks
             SET status = ?, updated_at = ?, last_heartbeat = ?, error_message = NULL
             WHERE id = (
                 SELECT id FROM tasks WHERE status = ? ORDER BY created_at LIMIT 1
             )
             RETURNING `+taskColumns,
			StatusProcessing,
			now,
			now,
			StatusPending,
		)
		task, scanErr = scanTask(row)
		if errors.Is(scanErr, sql.ErrNoRows) {
			task = nil
			return nil
		}
		return scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("claim pending task: %w", err)
	}
	return task, nil
}

// MarkDone records the classification result and flips the task to done in
// one transaction. Results are write-once: a second call for the same task
// fails on the unique task_id constraint.
func (s *Store) MarkDone(ctx context.Context, taskID, label string, confidence float64) error {
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin done tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO results (task_id, label, confidence, created_at) VALUES (?, ?, ?, ?)`,
			taskID, label, confidence, now,
		); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE tasks
             SET status = ?, label = ?, confidence = ?, updated_at = ?, last_heartbeat = NULL, error_message = NULL
             WHERE id = ? AND status = ?`,
			StatusDone, label, confidence, now, taskID, StatusProcessing,
		)
		if err != nil {
			return fmt.Errorf("mark task done: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("task %s is not processing", taskID)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit done tx: %w", err)
		}
		return nil
	})
}

// Release returns a claimed task to pending without recording a failure.
// The worker releases tasks it cannot serve yet, such as when the trained
// model artifact has not appeared on disk. Releasing a task that is no
// longer processing is a no-op; the reclaim sweep may have beaten the
// caller to it.
func (s *Store) Release(ctx context.Context, taskID string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE tasks
         SET status = ?, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending, now, taskID, StatusProcessing,
	); err != nil {
		return fmt.Errorf("release task: %w", err)
	}
	return nil
}

// MarkError records a terminal failure for a task with a human-readable message.
func (s *Store) MarkError(ctx context.Context, taskID, message string) error {
	if message == "" {
		message = "classification failed"
	}
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE tasks
         SET status = ?, error_message = ?, updated_at = ?, last_heartbeat = NULL
         WHERE id = ?`,
		StatusError, message, now, taskID,
	); err != nil {
		return fmt.Errorf("mark task errored: %w", err)
	}
	return nil
}

// List returns tasks filtered by status set (or all tasks when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Task, error) {
	var (
		rows *sql.Rows
		err  error
	)
	ctx = ensureContext(ctx)

	baseQuery := `SELECT ` + taskColumns + ` FROM tasks`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight task.
func (s *Store) UpdateHeartbeat(ctx context.Context, taskID string) error {
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE tasks SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now, now, taskID, StatusProcessing,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns processing tasks whose heartbeat expired
// back to pending so a live worker can claim them again.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks
         SET status = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending,
		formatTime(time.Now()),
		StatusProcessing,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale tasks: %w", err)
	}
	return res.RowsAffected()
}

// RetryErrored moves errored tasks back to pending for reprocessing.
func (s *Store) RetryErrored(ctx context.Context, ids ...string) (int64, error) {
	now := formatTime(time.Now())
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE tasks SET status = ?, error_message = NULL, updated_at = ? WHERE status = ?`,
			StatusPending, now, StatusError,
		)
		if err != nil {
			return 0, fmt.Errorf("retry errored tasks: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StatusPending, now, StatusError)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE tasks SET status = ?, error_message = NULL, updated_at = ?
         WHERE status = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected tasks: %w", err)
	}
	return res.RowsAffected()
}

// ClearTerminal removes done and errored tasks along with done tasks' results.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM tasks WHERE status IN (?, ?)`, StatusDone, StatusError)
	if err != nil {
		return 0, fmt.Errorf("clear terminal tasks: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all tasks.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM tasks`)
	if err != nil {
		return 0, fmt.Errorf("clear tasks: %w", err)
	}
	return res.RowsAffected()
}
