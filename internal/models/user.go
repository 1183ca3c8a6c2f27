package models

import "time"

// Account links a Telegram chat to a marketplace identity.
type Account struct {
	ID          int64     `json:"id"`
	ChatID      int64     `json:"chat_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
