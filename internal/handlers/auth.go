package handlers

import (
	"encoding/json"
	"net/http"

	"media-hub/internal/logging"
	"media-hub/internal/store"
)

// Login accepts any credentials. There are no accounts; the endpoint only
// mirrors a remote backend's latency and response shape.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds store.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.store.Authenticate(r.Context(), creds)
	if err != nil {
		logging.Warn("Login aborted: %v", err)
		writeJSONError(w, "Login failed", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
