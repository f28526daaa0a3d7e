// Handler helper functions shared across the chat and history endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/bps-ai-services/boatchat/internal/api/ctxkeys"
	"github.com/bps-ai-services/boatchat/internal/infra/openai"
)

const defaultListLimit = 25

// writeJSON serializes v with the given status. Encoding failures are ignored;
// the status line has already been written.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError writes the uniform {"error": <message>} body.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeDispatchError maps a pipeline failure onto a status code: provider
// errors carry their own status, everything else is a 500.
func writeDispatchError(w http.ResponseWriter, err error) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		writeError(w, apiErr.StatusCode, apiErr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// requireJSON rejects non-JSON bodies with a 415.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || ct != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "request must be json")
		return false
	}
	return true
}

// decodeBody decodes the request body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// userID reads the principal id injected by the middleware.
func userID(r *http.Request) string {
	return ctxkeys.Value(r.Context(), ctxkeys.UserID)
}

// defenderUserJSON reads the content-safety blob, empty when disabled.
func defenderUserJSON(r *http.Request) string {
	return ctxkeys.Value(r.Context(), ctxkeys.DefenderUserJSON)
}

// parseOffset reads the offset query parameter, defaulting to 0.
func parseOffset(r *http.Request) int {
	if off, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && off >= 0 {
		return off
	}
	return 0
}
