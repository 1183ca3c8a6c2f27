package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"decorbook/internal/models"
)

var ErrAccountNotFound = errors.New("account not found")

const accountColumns = `id, chat_id, username, email, display_name, role, created_at, updated_at`

// LinkAccount binds a chat to an account, replacing any earlier binding. An
// empty username keeps the stored one.
func (db *DB) LinkAccount(ctx context.Context, account *models.Account) error {
	query := `INSERT INTO accounts (chat_id, username, email, display_name, role, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(chat_id) DO UPDATE SET
                username = CASE WHEN excluded.username = '' THEN accounts.username ELSE excluded.username END,
                email = excluded.email,
                display_name = excluded.display_name,
                role = excluded.role,
                updated_at = excluded.updated_at`
	now := time.Now()
	role := account.Role
	if role == "" {
		role = models.RoleCustomer
	}
	_, err := db.ExecContext(ctx, query,
		account.ChatID,
		account.Username,
		strings.ToLower(account.Email),
		account.DisplayName,
		role,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}
	return nil
}

func (db *DB) GetAccountByChat(ctx context.Context, chatID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE chat_id = ?`
	var a models.Account
	err := db.QueryRowContext(ctx, query, chatID).Scan(
		&a.ID, &a.ChatID, &a.Username, &a.Email, &a.DisplayName, &a.Role, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

// GetAccountsByEmail returns every chat signed in as email. One person may
// use the bot from several chats.
func (db *DB) GetAccountsByEmail(ctx context.Context, email string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = ? ORDER BY updated_at DESC`
	return db.queryAccounts(ctx, query, strings.ToLower(email))
}

func (db *DB) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY updated_at DESC`
	return db.queryAccounts(ctx, query)
}

func (db *DB) UnlinkAccount(ctx context.Context, chatID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM accounts WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to unlink account: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM booking_watch WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to clear watch list: %w", err)
	}
	return nil
}

func (db *DB) queryAccounts(ctx context.Context, query string, args ...interface{}) ([]*models.Account, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a := &models.Account{}
		if err := rows.Scan(
			&a.ID, &a.ChatID, &a.Username, &a.Email, &a.DisplayName, &a.Role, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
