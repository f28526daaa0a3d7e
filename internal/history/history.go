// Package history is the conversation-store collaborator. The orchestrator
// consumes it through a narrow interface: create/read/delete conversations and
// messages, feedback updates, and a health check.
//
// Each orchestration call acquires its own Client from the Factory and releases
// it explicitly before the outbound model round trip; the handle is never held
// across the provider call.
package history

import (
	"context"
	"database/sql"
	"errors"
)

// ErrConversationNotFound is returned when a message targets a conversation id
// that does not exist for the user.
var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is one stored conversation record.
type Conversation struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	UserID          string  `json:"userId"`
	Title           string  `json:"title"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
	Feedback        *string `json:"conversation_feedback,omitempty"`
	FeedbackMessage *string `json:"conversation_feedback_message,omitempty"`
	State           *string `json:"state,omitempty"`
	City            *string `json:"city,omitempty"`
	Tags            *string `json:"tags,omitempty"`
}

// MessageRecord is one stored message.
type MessageRecord struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversationId"`
	UserID         string  `json:"userId"`
	Role           string  `json:"role"`
	Content        string  `json:"content"`
	CreatedAt      string  `json:"createdAt"`
	Feedback       *string `json:"feedback,omitempty"`
}

// MessageInput is the subset of a wire message the store persists.
type MessageInput struct {
	Role     string
	Content  string
	Feedback string
}

// ConversationAttrs carries the optional per-conversation fields v3 clients
// attach to the first message.
type ConversationAttrs struct {
	State *string
	City  *string
	Tags  *string
}

// Factory hands out per-call store clients over a shared *sql.DB pool.
type Factory struct {
	db             *sql.DB
	enableFeedback bool
}

// NewFactory wraps an open database. enableFeedback gates the message-feedback
// column the same way the frontend feature flag does.
func NewFactory(db *sql.DB, enableFeedback bool) *Factory {
	return &Factory{db: db, enableFeedback: enableFeedback}
}

// FeedbackEnabled reports whether message feedback is stored.
func (f *Factory) FeedbackEnabled() bool { return f.enableFeedback }

// Open acquires a dedicated connection for one orchestration call. Callers
// must Close it; the orchestrator does so before dispatching to the model.
func (f *Factory) Open(ctx context.Context) (*Client, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Client is one acquired store handle.
type Client struct {
	conn *sql.Conn
}

// Close releases the underlying connection back to the pool.
func (c *Client) Close() error { return c.conn.Close() }
