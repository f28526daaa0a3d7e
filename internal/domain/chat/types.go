// Package chat implements the request-orchestration and response-normalization
// pipeline: model-argument construction with secret redaction, intent
// classification, endpoint resolution, dispatch to the completion provider or
// a flow-execution endpoint, and reshaping of provider responses into the
// application's stable wire format.
package chat

// Message roles on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in a conversation turn. The fields past Feedback are
// v3 extras that clients attach to the first message of a turn.
type Message struct {
	ID        string  `json:"id,omitempty"`
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	CreatedAt string  `json:"createdAt,omitempty"`
	Feedback  *string `json:"feedback,omitempty"`

	ConversationID              string  `json:"conversation_id,omitempty"`
	PromptType                  int     `json:"prompt_type,omitempty"`
	State                       *string `json:"state,omitempty"`
	City                        *string `json:"city,omitempty"`
	Tags                        *string `json:"tags,omitempty"`
	ConversationFeedback        string  `json:"conversation_feedback,omitempty"`
	ConversationFeedbackMessage string  `json:"conversation_feedback_message,omitempty"`
}

// HistoryMetadata rides along with a turn once it has been bound to a stored
// conversation (title, date, conversation_id).
type HistoryMetadata map[string]string

// TurnRequest is one client-submitted message exchange unit. It exists only
// for the lifetime of a request; only individual messages are persisted.
type TurnRequest struct {
	Messages        []Message       `json:"messages"`
	ConversationID  string          `json:"conversation_id,omitempty"`
	HistoryMetadata HistoryMetadata `json:"history_metadata,omitempty"`

	// ID is the v3 top-level thread id, echoed back on the response.
	ID string `json:"id,omitempty"`
}

// LastUserMessage scans from the end of the turn for the most recent message
// with role user. Returns nil when the turn has none.
func (t TurnRequest) LastUserMessage() *Message {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == RoleUser {
			return &t.Messages[i]
		}
	}
	return nil
}

// NormalizedMessage is one message inside a normalized choice. Content holds
// either assistant text or a JSON-encoded tool payload (citations/context).
type NormalizedMessage struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// NormalizedChoice mirrors the frontend's expected choice shape: a list of
// messages rather than a single one, so tool context and assistant text can
// travel together.
type NormalizedChoice struct {
	Messages []NormalizedMessage `json:"messages"`
}

// NormalizedResponse is the application's stable response schema, produced for
// single-shot replies and, structurally identical, per streaming chunk.
// Created is int64 for provider-backed responses and the empty string for
// flow-execution responses, matching the wire format clients consume.
type NormalizedResponse struct {
	ID              string             `json:"id"`
	Model           string             `json:"model"`
	Created         any                `json:"created"`
	Object          string             `json:"object"`
	Choices         []NormalizedChoice `json:"choices"`
	HistoryMetadata HistoryMetadata    `json:"history_metadata"`
	CorrelationID   string             `json:"apim-request-id,omitempty"`
}
