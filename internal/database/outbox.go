package database

import (
	"context"
	"fmt"
	"time"

	"decorbook/internal/models"
)

func (db *DB) CreateOutboxMessage(ctx context.Context, msg *models.OutboxMessage) error {
	query := `INSERT INTO outbox (event_type, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if msg.Status == "" {
		msg.Status = models.OutboxPending
	}
	result, err := db.ExecContext(ctx, query,
		msg.EventType,
		msg.Payload,
		msg.Status,
		msg.RetryCount,
		msg.LastError,
		now,
		msg.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	msg.ID = id
	msg.CreatedAt = now
	return nil
}

// PendingOutbox returns messages due for delivery, oldest first.
func (db *DB) PendingOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	query := `SELECT id, event_type, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM outbox
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`
	return db.queryOutbox(ctx, query, time.Now(), limit)
}

func (db *DB) FailedOutbox(ctx context.Context) ([]models.OutboxMessage, error) {
	query := `SELECT id, event_type, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM outbox WHERE status = 'failed' ORDER BY created_at DESC`
	return db.queryOutbox(ctx, query)
}

func (db *DB) UpdateOutboxStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	now := time.Now()

	switch status {
	case models.OutboxRetry:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	case models.OutboxDelivered, models.OutboxFailed:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, &now, id}
	default:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update outbox status: %w", err)
	}
	return nil
}

func (db *DB) queryOutbox(ctx context.Context, query string, args ...interface{}) ([]models.OutboxMessage, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var msgs []models.OutboxMessage
	for rows.Next() {
		var m models.OutboxMessage
		if err := rows.Scan(
			&m.ID, &m.EventType, &m.Payload, &m.Status, &m.RetryCount, &m.LastError, &m.CreatedAt, &m.ProcessedAt, &m.NextRetryAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
