package handlers

import (
	"context"
	"errors"
	"net/url"
	"time"

	"video-captioner/internal/pipeline"
	"video-captioner/internal/storage"
)

// PosterSource renders poster thumbnails.
type PosterSource interface {
	Generate(ctx context.Context, jobID, videoPath, dst string) ([]byte, error)
}

// EncoderStatus reports whether the encoder can accept work.
type EncoderStatus interface {
	Available() error
	Capacity() (limit, inUse int)
}

// MemoryStatus reports heap pressure.
type MemoryStatus interface {
	UnderPressure() bool
	Usage() float64
}

var errMemoryPressure = errors.New("memory usage above critical mark")

type Handlers struct {
	service   *pipeline.Service
	area      *storage.Area
	posters   PosterSource
	encoder   EncoderStatus
	memory    MemoryStatus
	baseURL   string
	startTime time.Time
}

// New creates the handler set. baseURL prefixes returned file URLs.
func New(service *pipeline.Service, area *storage.Area, posters PosterSource, encoder EncoderStatus, baseURL string) *Handlers {
	return &Handlers{
		service:   service,
		area:      area,
		posters:   posters,
		encoder:   encoder,
		baseURL:   baseURL,
		startTime: time.Now(),
	}
}

// WithMemory makes readiness depend on heap pressure.
func (h *Handlers) WithMemory(m MemoryStatus) *Handlers {
	h.memory = m
	return h
}

// fileURL returns the public URL of a stored file.
func (h *Handlers) fileURL(name string) string {
	return h.baseURL + "/uploads/" + url.PathEscape(name)
}
