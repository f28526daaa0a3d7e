package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/bps-ai-services/boatchat/internal/domain/chat"
	"github.com/bps-ai-services/boatchat/internal/history"
	"github.com/bps-ai-services/boatchat/internal/infra/config"
)

const storeUnavailableMsg = "chat history is not configured or not working"

// HistoryHandler serves the conversation-history API. Every handler acquires
// its own store handle and releases it before returning (or, for generate,
// before the model round trip — the orchestrator handles that case).
type HistoryHandler struct {
	cfg   *config.Settings
	orch  *chat.Orchestrator
	store *history.Factory // nil when chat history is not configured
	log   *zap.Logger
}

func NewHistoryHandler(cfg *config.Settings, orch *chat.Orchestrator, store *history.Factory, log *zap.Logger) *HistoryHandler {
	return &HistoryHandler{cfg: cfg, orch: orch, store: store, log: log}
}

// openStore acquires a store handle, writing the uniform 500 when chat
// history is unavailable.
func (h *HistoryHandler) openStore(w http.ResponseWriter, r *http.Request) *history.Client {
	if h.store == nil {
		writeError(w, http.StatusInternalServerError, storeUnavailableMsg)
		return nil
	}
	client, err := h.store.Open(r.Context())
	if err != nil {
		h.log.Error("opening history store", zap.Error(err))
		writeError(w, http.StatusInternalServerError, storeUnavailableMsg)
		return nil
	}
	return client
}

// Generate handles POST /history/generate (and the v2/v3 variants): bind the
// turn to a conversation, persist the user message, then run the chat
// pipeline and return its result.
func (h *HistoryHandler) Generate(gen chat.Generation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chat.TurnRequest
		if !decodeBody(w, r, &req) {
			return
		}
		result, err := h.orch.Generate(r.Context(), gen, req, userID(r), defenderUserJSON(r))
		if err != nil {
			h.log.Error("history generate failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeChatResult(w, h.log, result)
	}
}

// Update handles POST /history/update: persist a completed assistant (and
// optional preceding tool) turn. Never calls the model.
func (h *HistoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req chat.TurnRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.orch.Update(r.Context(), req, userID(r)); err != nil {
		h.log.Error("history update failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// MessageFeedback handles POST /history/message_feedback.
func (h *HistoryHandler) MessageFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MessageID       string `json:"message_id"`
		MessageFeedback string `json:"message_feedback"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "message_id is required")
		return
	}
	if req.MessageFeedback == "" {
		writeError(w, http.StatusBadRequest, "message_feedback is required")
		return
	}

	client := h.openStore(w, r)
	if client == nil {
		return
	}
	defer client.Close() //nolint:errcheck

	updated, err := client.UpdateMessageFeedback(r.Context(), userID(r), req.MessageID, req.MessageFeedback)
	if err != nil {
		h.log.Error("updating message feedback", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, fmt.Sprintf(
			"Unable to update message %s. It either does not exist or the user does not have access to it.", req.MessageID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    fmt.Sprintf("Successfully updated message with feedback %s", req.MessageFeedback),
		"message_id": req.MessageID,
	})
}

// ConversationFeedback handles POST /history/conversation_feedback: the
// original single-field feedback variant, read from the body top level.
func (h *HistoryHandler) ConversationFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID       string `json:"conversation_id"`
		ConversationFeedback string `json:"conversation_feedback"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.applyConversationFeedback(w, r, req.ConversationID, req.ConversationFeedback, nil)
}

// ConversationFeedbackV3 handles POST /v3/history/conversation_feedback:
// feedback plus an optional free-text message, both read from messages[0].
func (h *HistoryHandler) ConversationFeedbackV3(w http.ResponseWriter, r *http.Request) {
	var req chat.TurnRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var conversationID, feedback, message string
	if len(req.Messages) > 0 {
		first := req.Messages[0]
		conversationID = first.ConversationID
		feedback = first.ConversationFeedback
		message = first.ConversationFeedbackMessage
	}
	h.applyConversationFeedback(w, r, conversationID, feedback, &message)
}

// applyConversationFeedback is shared by both feedback variants; a nil
// message selects the single-field update.
func (h *HistoryHandler) applyConversationFeedback(w http.ResponseWriter, r *http.Request, conversationID, feedback string, message *string) {
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}
	if feedback == "" {
		writeError(w, http.StatusBadRequest, "conversation_feedback is required")
		return
	}

	client := h.openStore(w, r)
	if client == nil {
		return
	}
	defer client.Close() //nolint:errcheck

	var (
		updated bool
		err     error
	)
	if message != nil {
		updated, err = client.UpdateConversationFeedbackWithMessage(r.Context(), userID(r), conversationID, feedback, *message)
	} else {
		updated, err = client.UpdateConversationFeedback(r.Context(), userID(r), conversationID, feedback)
	}
	if err != nil {
		h.log.Error("updating conversation feedback", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, fmt.Sprintf(
			"Unable to update conversation %s. It either does not exist or the user does not have access to it.", conversationID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    fmt.Sprintf("Successfully updated conversation with feedback %s", feedback),
		"message_id": conversationID,
	})
}

// Delete handles DELETE /history/delete: messages first, then the
// conversation record.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	client := h.openStore(w, r)
	if client == nil {
		return
	}
	defer client.Close() //nolint:errcheck

	if _, err := client.DeleteMessages(r.Context(), req.ConversationID, userID(r)); err != nil {
		h.log.Error("deleting conversation messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := client.DeleteConversation(r.Context(), userID(r), req.ConversationID); err != nil {
		h.log.Error("deleting conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":         "Successfully deleted conversation and messages",
		"conversation_id": req.ConversationID,
	})
}

// DeleteAll handles DELETE /history/delete_all: every conversation belonging
// to the caller.
func (h *HistoryHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	client := h.openStore(w, r)
	if client == nil {
		return
	}
	defer client.Close() //nolint:errcheck

	conversations, err := client.GetConversations(r.Context(), uid, 0, 0)
	if err != nil {
		h.log.Error("listing conversations for delete_all", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(conversations) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No conversations for %s were found", uid))
		return
	}
	for _, conv := range conversations {
		if _, err := client.DeleteMessages(r.Context(), conv.ID, uid); err != nil {
			h.log.Error("deleting conversation messages", zap.String("conversation_id", conv.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := client.DeleteConversation(r.Context(), uid, conv.ID); err != nil {
			h.log.Error("deleting conversation", zap.String("conversation_id", conv.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Successfully deleted conversation and messages for user %s", uid),
	})
}

// Clear handles POST /history/clear: delete the messages but keep the
// conversation record.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	client := h.openStore(w, r)
	if client == nil {
		return
	}
	defer client.Close() //nolint:errcheck

	if _, err := client.DeleteMessages(r.Context(), req.ConversationID, userID(r)); err != nil {
		h.log.Error("clearing conversation messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":         "Successfully deleted messages in conversation",
		"conversation_id": req.ConversationID,
	})
}

// List handles GET /history/list?offset=N, pages of 25.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	client := h.openStore(w, r)
	if client == nil {
		return
	}
	defer client.Close() //nolint:errcheck

	conversations, err := client.GetConversations(r.Context(), uid, parseOffset(r), defaultListLimit)
	if err != nil {
		h.log.Error("listing conversations", zap.Error(err))
		writeError(w, http.StatusNotFound, fmt.Sprintf("No conversations for %s were found", uid))
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// readMessage is the frontend-facing message shape returned by Read.
type readMessage struct {
	ID        string  `json:"id"`
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	CreatedAt string  `json:"createdAt"`
	Feedback  *string `json:"feedback"`
}

// Read handles POST /history/read: the conversation plus its messages.
func (h *HistoryHandler) Read(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	client := h.openStore(w, r)
	if client == nil {
		return
	}
	defer client.Close() //nolint:errcheck

	conversation, err := client.GetConversation(r.Context(), userID(r), req.ConversationID)
	if err != nil {
		h.log.Error("reading conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conversation == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf(
			"Conversation %s was not found. It either does not exist or the logged in user does not have access to it.", req.ConversationID))
		return
	}

	records, err := client.GetMessages(r.Context(), userID(r), req.ConversationID)
	if err != nil {
		h.log.Error("reading conversation messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	messages := make([]readMessage, 0, len(records))
	for _, rec := range records {
		messages = append(messages, readMessage{
			ID:        rec.ID,
			Role:      rec.Role,
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
			Feedback:  rec.Feedback,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": req.ConversationID,
		"messages":        messages,
	})
}

// Rename handles POST /history/rename: retitle an existing conversation.
func (h *HistoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
		Title          string `json:"title"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	client := h.openStore(w, r)
	if client == nil {
		return
	}
	defer client.Close() //nolint:errcheck

	conversation, err := client.GetConversation(r.Context(), userID(r), req.ConversationID)
	if err != nil {
		h.log.Error("reading conversation for rename", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conversation == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf(
			"Conversation %s was not found. It either does not exist or the logged in user does not have access to it.", req.ConversationID))
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	conversation.Title = req.Title
	updated, err := client.UpsertConversation(r.Context(), conversation)
	if err != nil {
		h.log.Error("renaming conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Ensure handles GET /history/ensure: the health of the conversation store.
// 404 when history is not configured at all, 422 when configured but broken
// with a known cause, 500 otherwise.
func (h *HistoryHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	if h.cfg.ChatHistory == nil || h.store == nil {
		writeError(w, http.StatusNotFound, "chat history is not configured")
		return
	}
	client, err := h.store.Open(r.Context())
	if err != nil {
		h.log.Error("opening history store for ensure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, storeUnavailableMsg)
		return
	}
	defer client.Close() //nolint:errcheck

	ok, detail := client.Ensure(r.Context())
	if !ok {
		if detail != "" {
			writeError(w, http.StatusUnprocessableEntity, detail)
			return
		}
		writeError(w, http.StatusInternalServerError, storeUnavailableMsg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "chat history is configured and working"})
}
