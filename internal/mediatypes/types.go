package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType is the coarse kind of a stored file.
type FileType string

const (
	FileTypeVideo   FileType = "video"
	FileTypeCaption FileType = "caption"
	FileTypeImage   FileType = "image"
	FileTypeText    FileType = "text"
	FileTypeOther   FileType = "other"
)

// VideoExtensions lists containers the encoder is expected to accept.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
	".ts":   true,
}

var CaptionExtensions = map[string]bool{
	".srt": true,
	".vtt": true,
}

var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".ts":   "video/mp2t",

	".srt": "application/x-subrip",
	".vtt": "text/vtt",

	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",

	".txt": "text/plain; charset=utf-8",
}

// GetFileType returns the FileType for a lowercase extension with its
// leading dot.
func GetFileType(ext string) FileType {
	switch {
	case VideoExtensions[ext]:
		return FileTypeVideo
	case CaptionExtensions[ext]:
		return FileTypeCaption
	case ImageExtensions[ext]:
		return FileTypeImage
	case ext == ".txt":
		return FileTypeText
	default:
		return FileTypeOther
	}
}

// GetMimeType returns the MIME type for a lowercase extension, or
// "application/octet-stream".
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

func extOf(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// ForName returns the FileType of a file name.
func ForName(name string) FileType {
	return GetFileType(extOf(name))
}

// MimeForName returns the MIME type of a file name.
func MimeForName(name string) string {
	return GetMimeType(extOf(name))
}
