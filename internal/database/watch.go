package database

import (
	"context"
	"fmt"
	"time"
)

// WatchedStatuses returns booking id -> last reported status for a chat.
func (db *DB) WatchedStatuses(ctx context.Context, chatID int64) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT booking_id, status FROM booking_watch WHERE chat_id = ?`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watched statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("failed to scan watched status: %w", err)
		}
		out[id] = status
	}
	return out, rows.Err()
}

func (db *DB) SaveWatchedStatus(ctx context.Context, chatID int64, bookingID, status string) error {
	query := `INSERT INTO booking_watch (chat_id, booking_id, status, updated_at) VALUES (?, ?, ?, ?)
              ON CONFLICT(chat_id, booking_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`
	if _, err := db.ExecContext(ctx, query, chatID, bookingID, status, time.Now()); err != nil {
		return fmt.Errorf("failed to save watched status: %w", err)
	}
	return nil
}

// ForgetWatched drops bookings the chat no longer sees, e.g. canceled ones.
func (db *DB) ForgetWatched(ctx context.Context, chatID int64, keep map[string]struct{}) error {
	current, err := db.WatchedStatuses(ctx, chatID)
	if err != nil {
		return err
	}
	for id := range current {
		if _, ok := keep[id]; ok {
			continue
		}
		if _, err := db.ExecContext(ctx, `DELETE FROM booking_watch WHERE chat_id = ? AND booking_id = ?`, chatID, id); err != nil {
			return fmt.Errorf("failed to forget booking %s: %w", id, err)
		}
	}
	return nil
}
