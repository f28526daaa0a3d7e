// Route registration and go-chi router setup.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bps-ai-services/boatchat/internal/api/handlers"
	apmiddleware "github.com/bps-ai-services/boatchat/internal/api/middleware"
	"github.com/bps-ai-services/boatchat/internal/domain/chat"
	"github.com/bps-ai-services/boatchat/internal/history"
	"github.com/bps-ai-services/boatchat/internal/infra/config"
)

// NewRouter wires the three chat route generations and the history API onto
// one chi router. store is nil when chat history is not configured; the
// history routes then report that per request instead of failing startup.
func NewRouter(cfg *config.Settings, orch *chat.Orchestrator, store *history.Factory, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apmiddleware.Principal(cfg, log))

	// Liveness — unauthenticated, used by load balancers and health probes.
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	feedbackEnabled := store != nil && store.FeedbackEnabled()
	settingsHandler := handlers.NewFrontendSettings(cfg, feedbackEnabled)
	r.Get("/frontend_settings", settingsHandler.Get)

	conversationHandler := handlers.NewConversationHandler(orch, log)
	r.Post("/conversation", conversationHandler.Converse(chat.GenerationV1))
	r.Post("/v2/conversation", conversationHandler.Converse(chat.GenerationV2))
	r.Post("/v3/conversation", conversationHandler.Converse(chat.GenerationV3))

	historyHandler := handlers.NewHistoryHandler(cfg, orch, store, log)
	r.Route("/history", func(r chi.Router) {
		r.Post("/generate", historyHandler.Generate(chat.GenerationV1))
		r.Post("/update", historyHandler.Update)
		r.Post("/message_feedback", historyHandler.MessageFeedback)
		r.Post("/conversation_feedback", historyHandler.ConversationFeedback)
		r.Delete("/delete", historyHandler.Delete)
		r.Delete("/delete_all", historyHandler.DeleteAll)
		r.Post("/clear", historyHandler.Clear)
		r.Get("/list", historyHandler.List)
		r.Post("/read", historyHandler.Read)
		r.Post("/rename", historyHandler.Rename)
		r.Get("/ensure", historyHandler.Ensure)
	})
	r.Post("/v2/history/generate", historyHandler.Generate(chat.GenerationV2))
	r.Post("/v3/history/generate", historyHandler.Generate(chat.GenerationV3))
	r.Post("/v3/history/conversation_feedback", historyHandler.ConversationFeedbackV3)

	return r
}
