package models

import "time"

const (
	OutboxPending   = "pending"
	OutboxRetry     = "retry"
	OutboxDelivered = "delivered"
	OutboxFailed    = "failed"
)

// OutboxMessage is an event that could not be forwarded to the broker and
// waits for redelivery.
type OutboxMessage struct {
	ID          int64
	EventType   string
	Payload     string
	Status      string
	RetryCount  int
	LastError   string
	CreatedAt   time.Time
	ProcessedAt *time.Time
	NextRetryAt *time.Time
}

// WatchedBooking is the last status the watcher reported to a chat.
type WatchedBooking struct {
	ChatID    int64
	BookingID string
	Status    string
	UpdatedAt time.Time
}
