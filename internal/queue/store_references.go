package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddReference stores a labeled fingerprint in the reference corpus.
func (s *Store) AddReference(ctx context.Context, label string, fingerprint []float64) (*Reference, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return nil, errors.New("reference label must not be empty")
	}
	if len(fingerprint) == 0 {
		return nil, errors.New("reference fingerprint must not be empty")
	}

	encoded, err := marshalFingerprint(fingerprint)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO reference_tracks (label, fingerprint, created_at) VALUES (?, ?, ?)`,
		label, encoded, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reference: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return &Reference{ID: id, Label: label, Fingerprint: fingerprint, CreatedAt: now}, nil
}

// References returns the full corpus in insertion order.
func (s *Store) References(ctx context.Context) ([]Reference, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, label, fingerprint, created_at FROM reference_tracks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer rows.Close()

	var refs []Reference
	for rows.Next() {
		var (
			ref        Reference
			rawFP      string
			createdRaw string
		)
		if err := rows.Scan(&ref.ID, &ref.Label, &rawFP, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		fp, err := unmarshalFingerprint(rawFP)
		if err != nil {
			return nil, fmt.Errorf("reference %d: %w", ref.ID, err)
		}
		ref.Fingerprint = fp
		if created, err := parseTimeString(createdRaw); err == nil {
			ref.CreatedAt = created
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// CountReferences reports the corpus size.
func (s *Store) CountReferences(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM reference_tracks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count references: %w", err)
	}
	return count, nil
}

// ClearReferences removes the entire reference corpus.
func (s *Store) ClearReferences(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM reference_tracks`)
	if err != nil {
		return 0, fmt.Errorf("clear references: %w", err)
	}
	return res.RowsAffected()
}
