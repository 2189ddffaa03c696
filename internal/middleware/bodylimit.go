package middleware

import (
	"encoding/json"
	"net/http"

	"video-captioner/internal/logging"
)

// MaxBodySize caps request bodies at limit bytes. Requests that declare a
// larger Content-Length are refused with 413 before any body is read;
// others are wrapped in http.MaxBytesReader so handlers see a
// *http.MaxBytesError once the limit is crossed.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				id := GetRequestID(r.Context())
				logging.Request(logging.LevelWarn, id, "rejecting %s %s: body of %d bytes exceeds limit %d",
					r.Method, sanitizeLogField(r.URL.Path), r.ContentLength, limit)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Connection", "close")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Request body too large."})
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
