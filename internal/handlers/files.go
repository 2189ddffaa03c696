package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"video-captioner/internal/logging"
	"video-captioner/internal/mediatypes"
	"video-captioner/internal/middleware"
)

// resolveName validates the {filename} route variable. It writes the error
// response itself and returns ok=false when the name is unusable.
func (h *Handlers) resolveName(w http.ResponseWriter, r *http.Request) (name, path string, ok bool) {
	name = mux.Vars(r)["filename"]
	path, err := h.area.Resolve(name)
	if err != nil {
		logging.Request(logging.LevelDebug, middleware.GetRequestID(r.Context()), "rejected file name: %v", err)
		writeJSONError(w, "Invalid file name.", http.StatusBadRequest)
		return "", "", false
	}
	return name, path, true
}

// ServeFile serves a stored file. Range and conditional requests are
// handled by http.ServeContent.
func (h *Handlers) ServeFile(w http.ResponseWriter, r *http.Request) {
	name, path, ok := h.resolveName(w, r)
	if !ok {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Error("failed to open %s: %v", path, err)
		}
		writeJSONError(w, msgNotFound, http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeJSONError(w, msgNotFound, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", mediatypes.MimeForName(name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// DeleteFile removes a stored file and any poster cached for it.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	name, _, ok := h.resolveName(w, r)
	if !ok {
		return
	}

	if err := h.area.Remove(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeJSONError(w, msgNotFound, http.StatusNotFound)
			return
		}
		logging.Request(logging.LevelError, requestID, "failed to delete %s: %v", name, err)
		writeServerError(w, "Failed to delete file.", requestID, http.StatusInternalServerError)
		return
	}
	if mediatypes.ForName(name) == mediatypes.FileTypeVideo {
		h.area.RemoveQuiet(h.area.PosterPath(name))
	}

	logging.Request(logging.LevelInfo, requestID, "deleted %s", name)
	writeJSONStatus(w, http.StatusOK, map[string]string{
		"message":  "File deleted.",
		"fileName": name,
	})
}

// GetThumbnail returns a JPEG poster frame for a stored video.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	name, path, ok := h.resolveName(w, r)
	if !ok {
		return
	}
	if mediatypes.ForName(name) != mediatypes.FileTypeVideo {
		writeJSONError(w, "Thumbnails are only available for videos.", http.StatusBadRequest)
		return
	}
	release := h.area.Hold(path)
	defer release()
	if !h.area.Exists(path) {
		writeJSONError(w, msgNotFound, http.StatusNotFound)
		return
	}

	data, err := h.posters.Generate(r.Context(), requestID, path, h.area.PosterPath(name))
	if err != nil {
		logging.Request(logging.LevelError, requestID, "thumbnail for %s failed: %v", name, err)
		writeServerError(w, "Failed to generate thumbnail.", requestID, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		logging.Debug("thumbnail write for %s aborted: %v", name, err)
	}
}
