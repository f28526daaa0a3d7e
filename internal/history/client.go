package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Fixed-width fractional seconds: RFC3339Nano drops trailing zeros, which
// breaks lexicographic ordering on the created_at column.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowRFC3339() string { return time.Now().UTC().Format(timestampLayout) }

// CreateConversation inserts a new conversation for the user and returns the
// stored record.
func (c *Client) CreateConversation(ctx context.Context, userID, title string, attrs ConversationAttrs) (*Conversation, error) {
	now := nowRFC3339()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Type:      "conversation",
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		State:     attrs.State,
		City:      attrs.City,
		Tags:      attrs.Tags,
	}
	_, err := c.conn.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at, state, city, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt,
		conv.State, conv.City, conv.Tags,
	)
	if err != nil {
		return nil, fmt.Errorf("history: create conversation: %w", err)
	}
	return conv, nil
}

// UpsertConversation writes back a modified conversation (rename).
func (c *Client) UpsertConversation(ctx context.Context, conv *Conversation) (*Conversation, error) {
	conv.UpdatedAt = nowRFC3339()
	_, err := c.conn.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at, feedback, feedback_message, state, city, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at,
			feedback = excluded.feedback,
			feedback_message = excluded.feedback_message`,
		conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt,
		conv.Feedback, conv.FeedbackMessage, conv.State, conv.City, conv.Tags,
	)
	if err != nil {
		return nil, fmt.Errorf("history: upsert conversation: %w", err)
	}
	return conv, nil
}

// CreateMessage persists one message under an existing conversation and bumps
// the conversation's updated timestamp. Returns ErrConversationNotFound when
// the conversation does not exist for the user.
func (c *Client) CreateMessage(ctx context.Context, id, conversationID, userID string, in MessageInput) (*MessageRecord, error) {
	conv, err := c.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	rec := &MessageRecord{
		ID:             id,
		ConversationID: conversationID,
		UserID:         userID,
		Role:           in.Role,
		Content:        in.Content,
		CreatedAt:      nowRFC3339(),
	}
	if in.Feedback != "" {
		rec.Feedback = &in.Feedback
	}
	if _, err := c.conn.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, user_id, role, content, created_at, feedback)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ConversationID, rec.UserID, rec.Role, rec.Content, rec.CreatedAt, rec.Feedback,
	); err != nil {
		return nil, fmt.Errorf("history: create message: %w", err)
	}
	if _, err := c.conn.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE id = ?", rec.CreatedAt, conversationID,
	); err != nil {
		return nil, fmt.Errorf("history: touch conversation: %w", err)
	}
	return rec, nil
}

// GetConversation returns the user's conversation or nil when absent.
func (c *Client) GetConversation(ctx context.Context, userID, conversationID string) (*Conversation, error) {
	row := c.conn.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at, feedback, feedback_message, state, city, tags
		FROM conversations WHERE id = ? AND user_id = ?`,
		conversationID, userID,
	)
	conv := Conversation{Type: "conversation"}
	err := row.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt,
		&conv.Feedback, &conv.FeedbackMessage, &conv.State, &conv.City, &conv.Tags)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: get conversation: %w", err)
	}
	return &conv, nil
}

// GetConversations lists the user's conversations, most recently updated
// first. limit <= 0 means no limit.
func (c *Client) GetConversations(ctx context.Context, userID string, offset, limit int) ([]Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at, feedback, feedback_message, state, city, tags
		FROM conversations WHERE user_id = ?
		ORDER BY updated_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, offset)
	}

	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list conversations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	// Non-nil so an empty listing serializes as [] rather than null.
	out := []Conversation{}
	for rows.Next() {
		conv := Conversation{Type: "conversation"}
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt,
			&conv.Feedback, &conv.FeedbackMessage, &conv.State, &conv.City, &conv.Tags); err != nil {
			return nil, fmt.Errorf("history: scan conversation: %w", err)
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// GetMessages returns the conversation's messages in insertion order.
func (c *Client) GetMessages(ctx context.Context, userID, conversationID string) ([]MessageRecord, error) {
	rows, err := c.conn.QueryContext(ctx, `
		SELECT id, conversation_id, user_id, role, content, created_at, feedback
		FROM messages WHERE conversation_id = ? AND user_id = ?
		ORDER BY created_at, id`,
		conversationID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("history: get messages: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []MessageRecord
	for rows.Next() {
		var rec MessageRecord
		if err := rows.Scan(&rec.ID, &rec.ConversationID, &rec.UserID, &rec.Role,
			&rec.Content, &rec.CreatedAt, &rec.Feedback); err != nil {
			return nil, fmt.Errorf("history: scan message: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteMessages removes all messages of a conversation.
func (c *Client) DeleteMessages(ctx context.Context, conversationID, userID string) (int64, error) {
	res, err := c.conn.ExecContext(ctx,
		"DELETE FROM messages WHERE conversation_id = ? AND user_id = ?",
		conversationID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("history: delete messages: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteConversation removes the conversation record itself.
func (c *Client) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if _, err := c.conn.ExecContext(ctx,
		"DELETE FROM conversations WHERE id = ? AND user_id = ?",
		conversationID, userID,
	); err != nil {
		return fmt.Errorf("history: delete conversation: %w", err)
	}
	return nil
}

// UpdateMessageFeedback stores feedback on one message. Returns false when the
// message does not exist or belongs to another user.
func (c *Client) UpdateMessageFeedback(ctx context.Context, userID, messageID, feedback string) (bool, error) {
	res, err := c.conn.ExecContext(ctx,
		"UPDATE messages SET feedback = ? WHERE id = ? AND user_id = ?",
		feedback, messageID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("history: update message feedback: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpdateConversationFeedback stores the v1-style single feedback field.
func (c *Client) UpdateConversationFeedback(ctx context.Context, userID, conversationID, feedback string) (bool, error) {
	res, err := c.conn.ExecContext(ctx,
		"UPDATE conversations SET feedback = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		feedback, nowRFC3339(), conversationID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("history: update conversation feedback: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpdateConversationFeedbackWithMessage stores the v3-style feedback plus
// free-text message pair.
func (c *Client) UpdateConversationFeedbackWithMessage(ctx context.Context, userID, conversationID, feedback, message string) (bool, error) {
	res, err := c.conn.ExecContext(ctx,
		"UPDATE conversations SET feedback = ?, feedback_message = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		feedback, message, nowRFC3339(), conversationID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("history: update conversation feedback: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Ensure verifies the store is reachable and migrated. Returns (false, detail)
// rather than an error so callers can map the detail onto their response.
func (c *Client) Ensure(ctx context.Context) (bool, string) {
	var n int
	row := c.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations")
	if err := row.Scan(&n); err != nil {
		return false, fmt.Sprintf("conversation store is not migrated: %v", err)
	}
	if n == 0 {
		return false, "conversation store has no applied migrations"
	}
	return true, ""
}
