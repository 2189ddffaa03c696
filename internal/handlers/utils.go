package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"video-captioner/internal/logging"
	"video-captioner/internal/pipeline"
)

const (
	msgBodyTooLarge = "Request body too large."
	msgInternal     = "Internal server error."
	msgNotFound     = "File not found."
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatus writes v as JSON with the given status code.
func writeJSONStatus(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatus(w, statusCode, map[string]string{"error": message})
}

// writeServerError writes a 5xx response that carries only a generic
// message and the request id.
func writeServerError(w http.ResponseWriter, message, requestID string, statusCode int) {
	writeJSONStatus(w, statusCode, map[string]string{
		"error":     message,
		"requestId": requestID,
	})
}

// writePipelineError maps a pipeline failure onto an HTTP response.
func writePipelineError(w http.ResponseWriter, requestID string, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeJSONError(w, msgBodyTooLarge, http.StatusRequestEntityTooLarge)
		return
	}

	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		logging.Request(logging.LevelError, requestID, "unclassified error: %v", err)
		writeServerError(w, msgInternal, requestID, http.StatusInternalServerError)
		return
	}

	switch pe.Kind {
	case pipeline.KindValidation, pipeline.KindPath:
		writeJSONError(w, pe.Message, http.StatusBadRequest)
	case pipeline.KindNotFound:
		writeJSONStatus(w, http.StatusBadRequest, map[string]interface{}{
			"error":        pe.Message,
			"missingFiles": pe.Missing,
		})
	case pipeline.KindTimeout:
		writeServerError(w, pe.Message, requestID, http.StatusGatewayTimeout)
	default:
		writeServerError(w, pe.Message, requestID, http.StatusInternalServerError)
	}
}
