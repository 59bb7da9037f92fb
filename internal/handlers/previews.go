package handlers

import (
	"bytes"
	"net/http"
	"time"

	"media-hub/internal/logging"
	"media-hub/internal/media"
	"media-hub/internal/objecturl"

	"github.com/gorilla/mux"
)

// PreviewResponse describes a transient preview handle.
type PreviewResponse struct {
	Handle string `json:"handle"`
	URL    string `json:"url"`
}

// CreatePreview stores the multipart "file" field under a new transient
// handle owned by {scope}/{slot}. The slot's previous handle is released.
func (h *Handlers) CreatePreview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	defer cleanupMultipart(r)

	tooLarge, err := parseMultipart(w, r, h.config.MaxUploadSize)
	if err != nil {
		if tooLarge {
			writeJSONError(w, "Preview too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Invalid preview form", http.StatusBadRequest)
		return
	}

	asset, err := readAsset(r, "file")
	if err != nil {
		writeJSONError(w, "A file is required", http.StatusBadRequest)
		return
	}

	handle := h.registry.Put(vars["scope"], vars["slot"], asset.Data, asset.ResolvedContentType())
	writeJSON(w, http.StatusCreated, PreviewResponse{
		Handle: string(handle),
		URL:    "/api/blob/" + handle.ID(),
	})
}

// ReleasePreview frees the handle owned by {scope}/{slot}.
func (h *Handlers) ReleasePreview(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	released := h.registry.ReleaseSlot(vars["scope"], vars["slot"])
	writeJSON(w, http.StatusOK, map[string]bool{"released": released})
}

// ReleasePreviewScope frees every handle owned by slots in {scope}.
func (h *Handlers) ReleasePreviewScope(w http.ResponseWriter, r *http.Request) {
	released := h.registry.ReleaseScope(mux.Vars(r)["scope"])
	writeJSON(w, http.StatusOK, map[string]int{"released": released})
}

// ServeBlob streams the content behind a live transient handle.
func (h *Handlers) ServeBlob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	data, contentType, ok := h.registry.Open(objecturl.FromID(id))
	if !ok {
		logging.Debug("Blob %s is not live", id)
		http.NotFound(w, r)
		return
	}

	if contentType == "" {
		contentType = media.DefaultContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
}
