package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Output container for every produced file. Uploads are stored under the
// same extension regardless of the submitted container; the encoder probes
// the actual format from content.
const VideoExt = ".mp4"

// PathError reports a caller-supplied file name that cannot be resolved to
// a location inside the storage area.
type PathError struct {
	Name   string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid file name %q: %s", e.Name, e.Reason)
}

// NewID returns an opaque identifier for an upload or job.
func NewID() string {
	return uuid.NewString()
}

// UploadPath is where the received original for id is kept.
func (a *Area) UploadPath(id string) string {
	return filepath.Join(a.root, id+VideoExt)
}

// CaptionPath is the SubRip track synthesized for upload id.
func (a *Area) CaptionPath(id string) string {
	return filepath.Join(a.root, id+".srt")
}

// OutputPath is the captioned video produced for upload id.
func (a *Area) OutputPath(id string) string {
	return filepath.Join(a.root, "output_"+id+VideoExt)
}

// ManifestPath is the concat list for combine job jobID. Each job gets its
// own manifest so concurrent combines never share an intermediate file.
func (a *Area) ManifestPath(jobID string) string {
	return filepath.Join(a.root, "concat_"+jobID+".txt")
}

// CombinedPath is the output of combine job jobID.
func (a *Area) CombinedPath(jobID string) string {
	return filepath.Join(a.root, "combined_"+jobID+VideoExt)
}

// PosterPath is the cached poster thumbnail for a stored file name.
func (a *Area) PosterPath(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(a.root, "poster_"+base+".jpg")
}

// Resolve maps a caller-supplied file name to an absolute path inside the
// storage area. Names must be a single path element: separators, ".."
// and absolute paths are rejected rather than stripped.
func (a *Area) Resolve(name string) (string, error) {
	if name == "" {
		return "", &PathError{Name: name, Reason: "name is empty"}
	}
	if strings.ContainsRune(name, 0) {
		return "", &PathError{Name: name, Reason: "name contains a NUL byte"}
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", &PathError{Name: name, Reason: "absolute paths are not allowed"}
	}
	if strings.ContainsAny(name, `/\`) {
		return "", &PathError{Name: name, Reason: "directory components are not allowed"}
	}
	if name == "." || name == ".." {
		return "", &PathError{Name: name, Reason: "not a file name"}
	}
	if strings.HasPrefix(name, ".") {
		// Partial uploads live under dot names until renamed.
		return "", &PathError{Name: name, Reason: "hidden files are not accessible"}
	}

	full := filepath.Join(a.root, name)
	rel, err := filepath.Rel(a.root, full)
	if err != nil || rel != name || strings.HasPrefix(rel, "..") {
		return "", &PathError{Name: name, Reason: "resolves outside the storage area"}
	}
	return full, nil
}

// EscapeFilterPath prepares a path for embedding in a single-quoted ffmpeg
// filter argument such as subtitles='...'. Separators become forward
// slashes and the characters the filter option parser treats specially
// (backslash, colon, single quote) are escaped.
func EscapeFilterPath(path string) string {
	p := filepath.ToSlash(path)
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, ":", `\:`)
	// Close the quote, emit an escaped quote, reopen.
	p = strings.ReplaceAll(p, "'", `'\\\''`)
	return p
}
