package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"media-hub/internal/logging"
	"media-hub/internal/media"

	"github.com/gorilla/mux"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

var errMissingFile = errors.New("missing file field")

// writeJSON encodes v as JSON with the given status code. Encoding errors
// are logged since the status line has already been sent.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes {"error": message} with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// parseID reads the numeric {id} route variable.
func parseID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// parseMultipart limits the body to limit bytes and parses the form.
// It reports whether a failure was caused by the size limit.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) (tooLarge bool, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		return errors.As(err, &maxErr) || r.ContentLength > limit, err
	}
	return false, nil
}

// readAsset loads an uploaded form file into memory. It returns
// errMissingFile when the field is absent.
func readAsset(r *http.Request, field string) (*media.Asset, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, errMissingFile
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return assetFromPart(file, header)
}

func assetFromPart(file multipart.File, header *multipart.FileHeader) (*media.Asset, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", header.Filename, err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		contentType = ""
	}

	return &media.Asset{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// cleanupMultipart removes temporary files left by ParseMultipartForm.
func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("failed to remove multipart temp files: %v", err)
		}
	}
}
