package storage

import (
	"context"
	"fmt"
	"log/slog"

	"bolsya/internal/core"
)

// SaveChatExchange stores a question and its answer as two consecutive
// messages.
func (r *SQLiteRepository) SaveChatExchange(ctx context.Context, userID int64, question, answer string) error {
	err := WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		for _, m := range []struct {
			role    core.Role
			content string
		}{
			{core.RoleUser, question},
			{core.RoleAssistant, answer},
		} {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chat_messages (user_id, role, content) VALUES (?, ?, ?)`,
				userID, string(m.role), m.content,
			); err != nil {
				return translate(err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save chat exchange: %w", err)
	}

	slog.InfoContext(ctx, "Chat exchange saved", "user_id", userID)
	return nil
}

// ListChatMessages returns the user's transcript oldest first. A positive
// limit keeps only the latest messages.
func (r *SQLiteRepository) ListChatMessages(ctx context.Context, userID int64, limit int) ([]core.ChatMessage, error) {
	query := `SELECT id, user_id, role, content, created_at FROM chat_messages WHERE user_id = ?`
	args := []any{userID}
	if limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY created_at DESC, id DESC LIMIT ?)`
		args = append(args, limit)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	messages := []core.ChatMessage{}
	for rows.Next() {
		var (
			m             core.ChatMessage
			role, created string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.Role = core.Role(role)
		if m.CreatedAt, err = core.ParseStoredTime(created); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return messages, nil
}

// ClearChat deletes the user's whole transcript.
func (r *SQLiteRepository) ClearChat(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clear chat: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Chat cleared", "user_id", userID, "deleted", n)
	return nil
}
