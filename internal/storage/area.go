package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"video-captioner/internal/filesystem"
	"video-captioner/internal/logging"
	"video-captioner/internal/metrics"

	"golang.org/x/crypto/blake2b"
)

// Area is the storage area rooted at a single directory.
type Area struct {
	root  string
	retry filesystem.RetryConfig

	holdMu sync.Mutex
	held   map[string]int
}

// Saved describes an upload written into the storage area.
type Saved struct {
	ID     string
	Path   string
	Size   int64
	Digest string // hex blake2b-256 of the received bytes
}

// New opens the storage area at root, creating the directory if needed.
func New(root string) (*Area, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat storage directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage path %s exists but is not a directory", abs)
	}

	return &Area{
		root:  abs,
		retry: filesystem.DefaultRetryConfig(),
		held:  make(map[string]int),
	}, nil
}

// RemoveStaleTemps deletes temp files left by a process that stopped
// mid-write and returns how many were removed. Sweep never touches temp
// files, so call this once at server startup before any upload begins.
func (a *Area) RemoveStaleTemps() int {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		logging.Warn("failed to scan storage directory for temp files: %v", err)
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isTempName(entry.Name()) {
			continue
		}
		if err := a.removePath(filepath.Join(a.root, entry.Name())); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("failed to remove leftover temp file %s: %v", entry.Name(), err)
			}
			continue
		}
		logging.Info("Removed leftover temp file %s", entry.Name())
		removed++
	}
	return removed
}

// isTempName reports whether name is an in-progress write.
func isTempName(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Root returns the absolute storage directory.
func (a *Area) Root() string {
	return a.root
}

// Exists reports whether path is an existing regular file.
func (a *Area) Exists(path string) bool {
	return filesystem.RegularFileExists(path)
}

// SaveUpload streams r into a temporary file inside the storage area and
// then renames it to the canonical upload path for id. A partial file is
// never visible under the canonical name.
func (a *Area) SaveUpload(id string, r io.Reader) (*Saved, error) {
	tmp, err := os.CreateTemp(a.root, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	tmpPath := tmp.Name()
	release := a.Hold(tmpPath)
	defer release()
	committed := false
	defer func() {
		if !committed {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				logging.Warn("failed to remove partial upload %s: %v", tmpPath, rmErr)
			}
		}
	}()

	hash, err := blake2b.New256(nil)
	if err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to initialize digest: %w", err)
	}

	start := time.Now()
	size, copyErr := io.Copy(io.MultiWriter(tmp, hash), r)
	closeErr := tmp.Close()
	filesystem.ObserveOperation("write", time.Since(start).Seconds(), errors.Join(copyErr, closeErr))
	if copyErr != nil {
		return nil, fmt.Errorf("failed to write upload: %w", copyErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close upload: %w", closeErr)
	}

	dst := a.UploadPath(id)
	if err := filesystem.RenameWithRetry(tmpPath, dst, a.retry); err != nil {
		return nil, fmt.Errorf("failed to rename upload: %w", err)
	}
	committed = true

	return &Saved{
		ID:     id,
		Path:   dst,
		Size:   size,
		Digest: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// Missing resolves every name and returns, in input order, the names that
// do not exist as regular files. The first unsafe name aborts with a
// *PathError.
func (a *Area) Missing(names []string) ([]string, error) {
	var missing []string
	for _, name := range names {
		path, err := a.Resolve(name)
		if err != nil {
			return nil, err
		}
		if !a.Exists(path) {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// Remove deletes the stored file with the given caller-visible name.
// The returned error wraps fs.ErrNotExist when there is no such file.
func (a *Area) Remove(name string) error {
	path, err := a.Resolve(name)
	if err != nil {
		return err
	}
	return a.removePath(path)
}

// RemoveQuiet deletes a file the server created, logging instead of failing.
func (a *Area) RemoveQuiet(path string) {
	if err := a.removePath(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("failed to remove %s: %v", path, err)
	}
}

func (a *Area) removePath(path string) error {
	start := time.Now()
	err := os.Remove(path)
	var recorded error
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		recorded = err
	}
	filesystem.ObserveOperation("remove", time.Since(start).Seconds(), recorded)
	return err
}

// Classify returns the artifact kind of a file name in the storage area.
func Classify(name string) string {
	switch {
	case strings.HasPrefix(name, "output_") && strings.HasSuffix(name, VideoExt):
		return "output"
	case strings.HasPrefix(name, "combined_") && strings.HasSuffix(name, VideoExt):
		return "combined"
	case strings.HasPrefix(name, "concat_") && strings.HasSuffix(name, ".txt"):
		return "manifest"
	case strings.HasPrefix(name, "poster_") && strings.HasSuffix(name, ".jpg"):
		return "poster"
	case strings.HasSuffix(name, ".srt"):
		return "caption"
	case strings.HasSuffix(name, VideoExt) && !strings.HasPrefix(name, "."):
		return "upload"
	default:
		return "other"
	}
}

// GetStats counts the storage area's files by kind. It satisfies
// metrics.StatsProvider.
func (a *Area) GetStats() (metrics.Stats, error) {
	start := time.Now()
	entries, err := os.ReadDir(a.root)
	filesystem.ObserveOperation("readdir", time.Since(start).Seconds(), err)
	if err != nil {
		return metrics.Stats{}, fmt.Errorf("failed to read storage directory: %w", err)
	}

	stats := metrics.Stats{Files: make(map[string]int)}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Files[Classify(entry.Name())]++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}
