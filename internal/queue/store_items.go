package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const itemColumns = `id, run_id, source_path, title, kind, status, output_path,
    used_fallback, cost_estimate, warnings_json, error_message, review_reason,
    created_at, updated_at`

// NewItem enqueues a media file for localization.
func (s *Store) NewItem(ctx context.Context, sourcePath string, kind MediaKind) (*Item, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	title := inferTitleFromPath(sourcePath)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queue_items (
            run_id, source_path, title, kind, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		sourcePath,
		title,
		string(kind),
		string(StatusPending),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. It returns nil when no item exists.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	warnings, err := json.Marshal(item.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE queue_items SET
            source_path = ?, title = ?, kind = ?, status = ?, output_path = ?,
            used_fallback = ?, cost_estimate = ?, warnings_json = ?,
            error_message = ?, review_reason = ?, updated_at = ?
        WHERE id = ?`,
		item.SourcePath,
		item.Title,
		string(item.Kind),
		string(item.Status),
		item.OutputPath,
		boolToInt(item.UsedFallback),
		item.CostEstimate,
		string(warnings),
		item.ErrorMessage,
		item.ReviewReason,
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// NextPending claims the oldest pending item, transitioning it to processing.
// It returns nil when the queue has no pending work.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY id LIMIT 1`,
		string(StatusPending),
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`UPDATE queue_items SET status = ?, updated_at = ? WHERE id = ?`,
		string(StatusProcessing), now, item.ID,
	); err != nil {
		return nil, fmt.Errorf("claim item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	item.Status = StatusProcessing
	return item, nil
}

// List returns items filtered by the provided statuses, oldest first.
// With no statuses it returns every item.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ResetStuckProcessing returns in-flight items to pending. Called at startup
// to reclaim items orphaned by a crashed run.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE queue_items SET status = ?, updated_at = ? WHERE status = ?`,
		string(StatusPending), now, string(StatusProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck processing: %w", err)
	}
	return res.RowsAffected()
}

// Retry returns a failed or review item to pending and clears its error state.
func (s *Store) Retry(ctx context.Context, id int64) error {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("item %d not found", id)
	}
	if item.Status != StatusFailed && item.Status != StatusReview {
		return fmt.Errorf("item %d is %s, not retryable", id, item.Status)
	}
	item.Status = StatusPending
	item.ErrorMessage = ""
	item.ReviewReason = ""
	return s.Update(ctx, item)
}

// Clear removes items in the provided statuses; with no statuses it empties
// the queue. It returns the number of removed rows.
func (s *Store) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	query := `DELETE FROM queue_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}
	return res.RowsAffected()
}

// CompletedVideoCount reports how many video items finished successfully.
// The workflow uses this to enforce the per-run video cap.
func (s *Store) CompletedVideoCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM queue_items WHERE kind = ? AND status = ?`,
		string(MediaVideo), string(StatusCompleted),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completed videos: %w", err)
	}
	return count, nil
}

// Health returns aggregate queue counts.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	var summary HealthSummary
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM queue_items GROUP BY status`)
	if err != nil {
		return summary, fmt.Errorf("queue health: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return summary, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending = count
		case StatusProcessing:
			summary.Processing = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		case StatusReview:
			summary.Review = count
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var kind, status, warningsJSON, createdAt, updatedAt string
	var usedFallback int

	err := row.Scan(
		&item.ID,
		&item.RunID,
		&item.SourcePath,
		&item.Title,
		&kind,
		&status,
		&item.OutputPath,
		&usedFallback,
		&item.CostEstimate,
		&warningsJSON,
		&item.ErrorMessage,
		&item.ReviewReason,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Kind = MediaKind(kind)
	item.Status = Status(status)
	item.UsedFallback = usedFallback != 0
	if warningsJSON != "" {
		if err := json.Unmarshal([]byte(warningsJSON), &item.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings: %w", err)
		}
	}
	if item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &item, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func inferTitleFromPath(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}
