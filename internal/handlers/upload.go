package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"video-captioner/internal/logging"
	"video-captioner/internal/middleware"
	"video-captioner/internal/pipeline"
	"video-captioner/internal/storage"
)

const (
	fieldVideo = "video"
	fieldText  = "question"
)

// UploadResponse is returned after a captioned video is produced.
type UploadResponse struct {
	Message  string `json:"message"`
	VideoURL string `json:"videoUrl"`
	FileName string `json:"fileName"`
}

// UploadVideo accepts a multipart form with a "video" file and "question"
// text and burns the text into the video as a caption. The video part is
// streamed straight to storage.
func (h *Handlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	mr, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, pipeline.MsgNoVideo, http.StatusBadRequest)
		return
	}

	var (
		text   string
		saved  *storage.Saved
		result *pipeline.Result
	)

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.service.Discard(requestID, saved)
			h.uploadReadError(w, requestID, err)
			return
		}

		switch {
		case part.FormName() == fieldText && part.FileName() == "":
			b, err := io.ReadAll(io.LimitReader(part, pipeline.MaxCaptionText+1))
			if err != nil {
				_ = part.Close()
				h.service.Discard(requestID, saved)
				h.uploadReadError(w, requestID, err)
				return
			}
			if len(b) > pipeline.MaxCaptionText {
				_ = part.Close()
				h.service.Discard(requestID, saved)
				writeJSONError(w, pipeline.MsgCaptionTooLong, http.StatusBadRequest)
				return
			}
			text = string(b)

		case part.FormName() == fieldVideo && part.FileName() != "" && saved == nil && result == nil:
			logging.Request(logging.LevelDebug, requestID, "receiving upload %q", part.FileName())
			if strings.TrimSpace(text) != "" {
				result, err = h.service.CaptionUpload(r.Context(), pipeline.UploadRequest{
					RequestID: requestID,
					File:      part,
					Text:      text,
				})
			} else {
				saved, err = h.service.Receive(requestID, part)
			}
			if err != nil {
				_ = part.Close()
				writePipelineError(w, requestID, err)
				return
			}
		}
		_ = part.Close()
	}

	if result == nil {
		if saved == nil {
			writeJSONError(w, pipeline.MsgNoVideo, http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(text) == "" {
			h.service.Discard(requestID, saved)
			writeJSONError(w, pipeline.MsgNoCaptionText, http.StatusBadRequest)
			return
		}
		result, err = h.service.Caption(r.Context(), requestID, saved, text)
		if err != nil {
			writePipelineError(w, requestID, err)
			return
		}
	}

	writeJSONStatus(w, http.StatusOK, UploadResponse{
		Message:  "Video uploaded with subtitles successfully.",
		VideoURL: h.fileURL(result.FileName),
		FileName: result.FileName,
	})
}

// uploadReadError answers a failure while reading the multipart body.
func (h *Handlers) uploadReadError(w http.ResponseWriter, requestID string, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeJSONError(w, msgBodyTooLarge, http.StatusRequestEntityTooLarge)
		return
	}
	logging.Request(logging.LevelWarn, requestID, "malformed multipart body: %v", err)
	writeJSONError(w, "Malformed upload.", http.StatusBadRequest)
}
