package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"sync"

	"video-captioner/internal/logging"

	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	PosterSize    = 320
	PosterQuality = 80
)

// FrameSource writes a single encoded frame of a video to w.
type FrameSource interface {
	ExtractFrame(ctx context.Context, jobID, videoPath string, w io.Writer) error
}

type PosterGenerator struct {
	frames FrameSource
	mu     sync.Mutex
}

func NewPosterGenerator(frames FrameSource) *PosterGenerator {
	return &PosterGenerator{frames: frames}
}

// Generate returns JPEG poster bytes for videoPath, caching them at dst.
// A cached poster is reused while it is at least as new as the video.
func (p *PosterGenerator) Generate(ctx context.Context, jobID, videoPath, dst string) ([]byte, error) {
	videoInfo, err := os.Stat(videoPath)
	if err != nil {
		return nil, fmt.Errorf("video not accessible: %w", err)
	}

	if data, ok := readFresh(dst, videoInfo); ok {
		logging.Debug("Poster cache hit: %s", videoPath)
		return data, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if data, ok := readFresh(dst, videoInfo); ok {
		return data, nil
	}

	logging.Request(logging.LevelDebug, jobID, "Poster generating: %s", videoPath)

	var frame bytes.Buffer
	if err := p.frames.ExtractFrame(ctx, jobID, videoPath, &frame); err != nil {
		return nil, fmt.Errorf("frame extraction failed: %w", err)
	}

	data, err := Render(&frame)
	if err != nil {
		return nil, err
	}

	if err := writeAtomic(dst, data); err != nil {
		logging.Warn("Failed to cache poster %s: %v", dst, err)
	} else {
		logging.Debug("Poster cached: %s", dst)
	}

	return data, nil
}

// Render decodes an encoded frame, fits it into the poster box and encodes
// it as JPEG.
func Render(r io.Reader) ([]byte, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	logging.Debug("Decoded frame format: %s (%dx%d)", format, img.Bounds().Dx(), img.Bounds().Dy())

	thumb := imaging.Fit(img, PosterSize, PosterSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: PosterQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode poster: %w", err)
	}
	return buf.Bytes(), nil
}

func readFresh(path string, source os.FileInfo) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil || info.ModTime().Before(source.ModTime()) {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// writeAtomic writes through a hidden temp file so a concurrent reader never
// sees a truncated poster.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".poster-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
