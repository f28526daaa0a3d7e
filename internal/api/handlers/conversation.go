package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bps-ai-services/boatchat/internal/domain/chat"
)

// ndjsonContentType is the streaming wire format: one JSON object per line.
const ndjsonContentType = "application/json-lines"

// ConversationHandler serves the stateless chat endpoints. One handler covers
// all three route families; the generation policy is bound at registration.
type ConversationHandler struct {
	orch *chat.Orchestrator
	log  *zap.Logger
}

func NewConversationHandler(orch *chat.Orchestrator, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{orch: orch, log: log}
}

// Converse handles POST /conversation (and the v2/v3 variants).
func (h *ConversationHandler) Converse(gen chat.Generation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireJSON(w, r) {
			return
		}
		var req chat.TurnRequest
		if !decodeBody(w, r, &req) {
			return
		}
		result, err := h.orch.Converse(r.Context(), gen, req, defenderUserJSON(r))
		if err != nil {
			h.log.Error("conversation dispatch failed", zap.Error(err))
			writeDispatchError(w, err)
			return
		}
		writeChatResult(w, h.log, result)
	}
}

// writeChatResult renders an orchestration outcome: a single JSON document,
// or an NDJSON stream held open until the provider's chunk sequence ends.
func writeChatResult(w http.ResponseWriter, log *zap.Logger, result *chat.Result) {
	if result.Stream == nil {
		writeJSON(w, http.StatusOK, result.Response)
		return
	}

	w.Header().Set("Content-Type", ndjsonContentType)
	w.WriteHeader(http.StatusOK)

	// The stream stays open for as long as the provider keeps producing, so
	// drop the server write deadline for this response only.
	rc := http.NewResponseController(w)
	rc.SetWriteDeadline(time.Time{}) //nolint:errcheck

	enc := json.NewEncoder(w)
	for chunk := range result.Stream {
		if err := enc.Encode(chunk); err != nil {
			log.Debug("client went away mid-stream", zap.Error(err))
			// Keep draining so the provider connection is released.
			for range result.Stream { //nolint:revive
			}
			return
		}
		rc.Flush() //nolint:errcheck
	}
}
