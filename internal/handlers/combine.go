package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"video-captioner/internal/middleware"
)

// CombineRequest lists stored files to concatenate, in order.
type CombineRequest struct {
	Files []struct {
		Name string `json:"name"`
	} `json:"files"`
}

// CombineResponse is returned after a combine job completes.
type CombineResponse struct {
	Message          string `json:"message"`
	CombinedVideoURL string `json:"combinedVideoUrl"`
	FileName         string `json:"fileName"`
}

// CombineVideos concatenates previously stored videos.
func (h *Handlers) CombineVideos(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req CombineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, msgBodyTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Invalid request body.", http.StatusBadRequest)
		return
	}

	names := make([]string, len(req.Files))
	for i, f := range req.Files {
		names[i] = f.Name
	}

	result, err := h.service.Combine(r.Context(), requestID, names)
	if err != nil {
		writePipelineError(w, requestID, err)
		return
	}

	writeJSONStatus(w, http.StatusOK, CombineResponse{
		Message:          "Videos combined successfully.",
		CombinedVideoURL: h.fileURL(result.FileName),
		FileName:         result.FileName,
	})
}
