package handlers

import (
	"errors"
	"net/http"

	"media-hub/internal/logging"
	"media-hub/internal/store"
)

// GetUser returns the profile.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context())
	if err != nil {
		logging.Warn("GetUser aborted: %v", err)
		writeJSONError(w, "Failed to get user", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUser merges the multipart "name" field and optional "avatar" file
// into the profile. An absent name leaves the current one in place.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	defer cleanupMultipart(r)

	tooLarge, err := parseMultipart(w, r, h.config.MaxUploadSize)
	if err != nil {
		if tooLarge {
			writeJSONError(w, "Avatar too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Invalid profile form", http.StatusBadRequest)
		return
	}

	var update store.ProfileUpdate
	if values, ok := r.MultipartForm.Value["name"]; ok && len(values) > 0 {
		name := values[0]
		update.Name = &name
	}

	avatar, err := readAsset(r, "avatar")
	if err != nil && !errors.Is(err, errMissingFile) {
		writeJSONError(w, "Invalid avatar upload", http.StatusBadRequest)
		return
	}

	user, err := h.store.UpdateUser(r.Context(), update, avatar)
	if err != nil {
		logging.Error("Profile update failed: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrInvalidAvatar) {
			status = http.StatusBadRequest
		}
		writeJSONError(w, "Update failed", status)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
