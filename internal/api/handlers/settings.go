package handlers

import (
	"net/http"

	"github.com/bps-ai-services/boatchat/internal/infra/config"
)

// FrontendSettings is the feature-flag and branding blob the browser client
// fetches once at load. Built from configuration at construction time; it
// never changes while the process runs.
type FrontendSettings struct {
	cfg             *config.Settings
	feedbackEnabled bool
}

func NewFrontendSettings(cfg *config.Settings, feedbackEnabled bool) *FrontendSettings {
	return &FrontendSettings{cfg: cfg, feedbackEnabled: feedbackEnabled}
}

// Get handles GET /frontend_settings.
func (h *FrontendSettings) Get(w http.ResponseWriter, _ *http.Request) {
	ui := h.cfg.UI
	chatLogo := ui.ChatLogo
	if chatLogo == "" {
		chatLogo = ui.Logo
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"auth_enabled":     h.cfg.Auth.Enabled,
		"feedback_enabled": h.feedbackEnabled,
		"ui": map[string]any{
			"title":             ui.Title,
			"logo":              ui.Logo,
			"chat_logo":         chatLogo,
			"chat_title":        ui.ChatTitle,
			"chat_description":  ui.ChatDescription,
			"show_share_button": ui.ShowShareButton,
		},
		"sanitize_answer": h.cfg.SanitizeAnswer,
	})
}
