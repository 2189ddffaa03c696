package handlers

import (
	"net/http"
	"runtime"
	"time"

	"video-captioner/internal/logging"
	"video-captioner/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`

	// Encoder slots
	JobsLimit   int `json:"jobsLimit"`
	JobsRunning int `json:"jobsRunning"`

	MemoryUsage float64 `json:"memoryUsage"`

	// Storage summary
	StoredFiles int   `json:"storedFiles"`
	StoredBytes int64 `json:"storedBytes"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// Root is the plain liveness message served at "/".
func (h *Handlers) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, http.StatusOK, map[string]string{
		"status":    "success",
		"message":   "Server is running!",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	limit, running := h.encoder.Capacity()
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		JobsLimit:    limit,
		JobsRunning:  running,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if h.memory != nil {
		response.MemoryUsage = h.memory.Usage()
	}

	if err := h.ready(); err != nil {
		response.Status = statusDegraded
		response.Ready = false
		response.Error = err.Error()
	}

	if stats, err := h.area.GetStats(); err == nil {
		for _, n := range stats.Files {
			response.StoredFiles += n
		}
		response.StoredBytes = stats.TotalBytes
	}

	status := http.StatusOK
	if !response.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the storage area is writable, the
// encoder binary can be found and memory is not under pressure.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if err := h.ready(); err != nil {
		logging.Warn("readiness check failed: %v", err)
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
		})
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (h *Handlers) ready() error {
	if err := startup.CheckWritable(h.area.Root()); err != nil {
		return err
	}
	if err := h.encoder.Available(); err != nil {
		return err
	}
	if h.memory != nil && h.memory.UnderPressure() {
		return errMemoryPressure
	}
	return nil
}
