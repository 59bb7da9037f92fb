package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"media-hub/internal/logging"
	"media-hub/internal/store"
)

// ListMedia returns every record, newest first.
func (h *Handlers) ListMedia(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListMedia(r.Context())
	if err != nil {
		logging.Warn("ListMedia aborted: %v", err)
		writeJSONError(w, "Failed to list media", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetMedia returns a single record.
func (h *Handlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.store.GetMedia(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, "Media not found", http.StatusNotFound)
	case err != nil:
		logging.Warn("GetMedia %d aborted: %v", id, err)
		writeJSONError(w, "Failed to get media", http.StatusServiceUnavailable)
	default:
		writeJSON(w, http.StatusOK, record)
	}
}

// UploadMedia stores the multipart "file" field under "title". When the
// client names a preview scope, every preview handle in that scope is
// released once the request finishes, whatever the outcome.
func (h *Handlers) UploadMedia(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("previewScope")
	defer func() {
		if scope != "" {
			if n := h.registry.ReleaseScope(scope); n > 0 {
				logging.Debug("Released %d preview handle(s) in scope %q", n, scope)
			}
		}
	}()
	defer cleanupMultipart(r)

	tooLarge, err := parseMultipart(w, r, h.config.MaxUploadSize)
	if scope == "" && r.MultipartForm != nil {
		scope = r.FormValue("previewScope")
	}
	if err != nil {
		if tooLarge {
			writeJSONError(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Invalid upload form", http.StatusBadRequest)
		return
	}

	asset, err := readAsset(r, "file")
	if err != nil {
		writeJSONError(w, "A file is required", http.StatusBadRequest)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(asset.Name, filepath.Ext(asset.Name))
	}

	record, err := h.store.UploadMedia(r.Context(), title, *asset)
	if err != nil {
		logging.Error("Upload of %q failed: %v", asset.Name, err)
		writeJSONError(w, "Upload failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// DeleteMedia removes a record and frees any transient handles it held.
// Unknown ids answer {"success": false} rather than an error status.
func (h *Handlers) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.store.DeleteMedia(r.Context(), id)
	if err != nil {
		logging.Error("Delete of media %d failed: %v", id, err)
		writeJSONError(w, "Delete failed", http.StatusInternalServerError)
		return
	}

	if result.Record != nil {
		h.registry.ReleaseRecord(result.Record.URL, result.Record.Thumbnail)
	}

	writeJSON(w, http.StatusOK, result)
}
