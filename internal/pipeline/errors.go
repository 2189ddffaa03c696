package pipeline

import (
	"context"
	"errors"
	"fmt"

	"video-captioner/internal/storage"
	"video-captioner/internal/transcoder"
)

// Kind classifies a pipeline failure. Its string form is also the metrics
// label.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindPath       Kind = "path"
	KindIO         Kind = "io"
	KindTranscode  Kind = "transcode"
	KindTimeout    Kind = "timeout"
)

// Caller-facing messages.
const (
	MsgNoVideo         = "No video file uploaded."
	MsgNoCaptionText   = "No subtitle text provided."
	MsgCaptionTooLong  = "Subtitle text is too long."
	MsgTooFewFiles     = "At least two video files are required to combine."
	MsgFilesMissing    = "Some files do not exist."
	MsgInvalidFileName = "Invalid file name."
	MsgIncompatible    = "Input videos have incompatible formats."
	MsgStoreFailed     = "Failed to store the uploaded video."
	MsgCaptionFailed   = "Failed to process video."
	MsgCombineFailed   = "Failed to combine videos."
	MsgTimedOut        = "Video processing timed out."
)

// Error is the single error type the pipelines return. Message is safe to
// show to callers; Diagnostics and Err are for logs only.
type Error struct {
	Kind        Kind
	Message     string
	Missing     []string
	Diagnostics string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindIO for errors that did not come
// from this package.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindIO
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// classifyTranscode converts an encoder error into a pipeline Error.
// failMsg is the caller-facing message for a plain encoder failure.
func classifyTranscode(err error, failMsg string) *Error {
	var missing *transcoder.MissingInputsError
	var exitErr *transcoder.ExitError
	var pathErr *storage.PathError

	switch {
	case errors.As(err, &missing):
		return &Error{Kind: KindNotFound, Message: MsgFilesMissing, Missing: missing.Paths, Err: err}
	case errors.Is(err, transcoder.ErrTimeout):
		return &Error{Kind: KindTimeout, Message: MsgTimedOut, Err: err}
	case errors.Is(err, transcoder.ErrInvalidInput):
		return &Error{Kind: KindValidation, Message: MsgTooFewFiles, Err: err}
	case errors.As(err, &pathErr):
		return &Error{Kind: KindPath, Message: MsgInvalidFileName, Err: err}
	case errors.As(err, &exitErr):
		return &Error{Kind: KindTranscode, Message: failMsg, Diagnostics: exitErr.Diagnostics, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindTranscode, Message: failMsg, Err: err}
	default:
		return &Error{Kind: KindIO, Message: failMsg, Err: err}
	}
}
