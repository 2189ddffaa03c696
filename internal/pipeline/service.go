package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"video-captioner/internal/caption"
	"video-captioner/internal/logging"
	"video-captioner/internal/metrics"
	"video-captioner/internal/storage"
	"video-captioner/internal/transcoder"
)

const (
	pipelineCaption = "caption"
	pipelineCombine = "combine"
)

// MaxCaptionText bounds caption text in bytes. It becomes a single cue.
const MaxCaptionText = 4 << 10

// Encoder is the subset of *transcoder.Transcoder the pipelines use.
type Encoder interface {
	BurnCaption(ctx context.Context, jobID, videoPath, captionPath, outputPath string) (string, error)
	Concat(ctx context.Context, jobID string, inputs []string, manifestPath, outputPath string) (string, error)
	Probe(ctx context.Context, jobID, path string) (*transcoder.VideoInfo, error)
}

// Options tune pipeline behaviour.
type Options struct {
	// CheckCompatibility probes combine inputs and rejects sets whose
	// stream layouts differ.
	CheckCompatibility bool
}

type Service struct {
	area    *storage.Area
	encoder Encoder
	opts    Options
}

// UploadRequest is one caption-upload submission.
type UploadRequest struct {
	RequestID string
	File      io.Reader
	Text      string
}

// Result describes the file a pipeline produced.
type Result struct {
	ID       string
	FileName string
	Path     string
	// Digest is the blake2b-256 of the uploaded source, empty for combine.
	Digest string
}

func NewService(area *storage.Area, encoder Encoder, opts Options) *Service {
	return &Service{area: area, encoder: encoder, opts: opts}
}

// CaptionUpload stores the upload and burns Text into it.
func (s *Service) CaptionUpload(ctx context.Context, req UploadRequest) (*Result, error) {
	if req.File == nil {
		return nil, s.fail(pipelineCaption, req.RequestID, validationError(MsgNoVideo))
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, s.fail(pipelineCaption, req.RequestID, validationError(MsgNoCaptionText))
	}
	if len(req.Text) > MaxCaptionText {
		return nil, s.fail(pipelineCaption, req.RequestID, validationError(MsgCaptionTooLong))
	}

	saved, err := s.Receive(req.RequestID, req.File)
	if err != nil {
		return nil, err
	}
	return s.Caption(ctx, req.RequestID, saved, req.Text)
}

// Receive writes an incoming upload to its canonical path under a fresh id.
func (s *Service) Receive(requestID string, r io.Reader) (*storage.Saved, error) {
	id := storage.NewID()
	s.stage(pipelineCaption, "received", requestID, "upload %s receiving", id)

	saved, err := s.area.SaveUpload(id, r)
	if err != nil {
		return nil, s.fail(pipelineCaption, requestID, &Error{Kind: KindIO, Message: MsgStoreFailed, Err: err})
	}
	metrics.UploadBytesTotal.Add(float64(saved.Size))
	s.stage(pipelineCaption, "renamed", requestID, "upload stored at %s (%d bytes, blake2b %s)", saved.Path, saved.Size, saved.Digest)
	return saved, nil
}

// Discard removes an upload that will not be processed.
func (s *Service) Discard(requestID string, saved *storage.Saved) {
	if saved == nil {
		return
	}
	logging.Request(logging.LevelDebug, requestID, "discarding upload %s", saved.Path)
	s.area.RemoveQuiet(saved.Path)
}

// Caption writes the caption track for a received upload and burns it in.
func (s *Service) Caption(ctx context.Context, requestID string, saved *storage.Saved, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, s.fail(pipelineCaption, requestID, validationError(MsgNoCaptionText))
	}
	if len(text) > MaxCaptionText {
		return nil, s.fail(pipelineCaption, requestID, validationError(MsgCaptionTooLong))
	}

	captionPath := s.area.CaptionPath(saved.ID)
	release := s.area.Hold(saved.Path, captionPath)
	defer release()

	if err := caption.Synthesize(text, captionPath); err != nil {
		return nil, s.fail(pipelineCaption, requestID, &Error{Kind: KindIO, Message: MsgCaptionFailed, Err: err})
	}
	s.stage(pipelineCaption, "caption_written", requestID, "caption track written to %s", captionPath)

	output := s.area.OutputPath(saved.ID)
	s.stage(pipelineCaption, "transcoding", requestID, "burning caption into %s", output)
	if _, err := s.encoder.BurnCaption(ctx, requestID, saved.Path, captionPath, output); err != nil {
		pe := classifyTranscode(err, MsgCaptionFailed)
		if pe.Kind == KindNotFound {
			// Both inputs were written by this request; losing one is a server fault.
			pe.Kind, pe.Message, pe.Missing = KindIO, MsgCaptionFailed, nil
		}
		return nil, s.fail(pipelineCaption, requestID, pe)
	}

	s.stage(pipelineCaption, "done", requestID, "caption upload complete: %s", output)
	return &Result{
		ID:       saved.ID,
		FileName: filepath.Base(output),
		Path:     output,
		Digest:   saved.Digest,
	}, nil
}

// Combine concatenates the named stored videos in order.
func (s *Service) Combine(ctx context.Context, requestID string, names []string) (*Result, error) {
	s.stage(pipelineCombine, "received", requestID, "combine of %d files requested", len(names))

	if len(names) < 2 {
		return nil, s.fail(pipelineCombine, requestID, validationError(MsgTooFewFiles))
	}

	missing, err := s.area.Missing(names)
	if err != nil {
		return nil, s.fail(pipelineCombine, requestID, &Error{Kind: KindPath, Message: MsgInvalidFileName, Err: err})
	}
	if len(missing) > 0 {
		return nil, s.fail(pipelineCombine, requestID, &Error{Kind: KindNotFound, Message: MsgFilesMissing, Missing: missing})
	}

	inputs := make([]string, len(names))
	for i, name := range names {
		// Already validated by Missing.
		inputs[i], _ = s.area.Resolve(name)
	}
	release := s.area.Hold(inputs...)
	defer release()

	if s.opts.CheckCompatibility {
		if perr := s.checkCompatible(ctx, requestID, inputs); perr != nil {
			return nil, s.fail(pipelineCombine, requestID, perr)
		}
	}
	s.stage(pipelineCombine, "validated", requestID, "inputs: %s", strings.Join(names, ", "))

	jobID := storage.NewID()
	manifest := s.area.ManifestPath(jobID)
	output := s.area.CombinedPath(jobID)
	defer s.area.RemoveQuiet(manifest)

	s.stage(pipelineCombine, "transcoding", requestID, "concatenating into %s as job %s", output, jobID)
	if _, err := s.encoder.Concat(ctx, jobID, inputs, manifest, output); err != nil {
		pe := classifyTranscode(err, MsgCombineFailed)
		if pe.Kind == KindNotFound {
			pe.Missing = baseNames(pe.Missing)
		}
		return nil, s.fail(pipelineCombine, requestID, pe)
	}

	s.stage(pipelineCombine, "done", requestID, "combine complete: %s", output)
	return &Result{
		ID:       jobID,
		FileName: filepath.Base(output),
		Path:     output,
	}, nil
}

// checkCompatible rejects inputs whose stream layouts differ. Probe
// failures skip the check; the encoder reports real incompatibilities.
func (s *Service) checkCompatible(ctx context.Context, requestID string, inputs []string) *Error {
	var first string
	for i, in := range inputs {
		info, err := s.encoder.Probe(ctx, requestID, in)
		if err != nil {
			logging.Request(logging.LevelWarn, requestID, "probe failed for %s, skipping compatibility check: %v", in, err)
			return nil
		}
		sig := info.Signature()
		if i == 0 {
			first = sig
			continue
		}
		if sig != first {
			return &Error{
				Kind:        KindValidation,
				Message:     MsgIncompatible,
				Diagnostics: first + " vs " + sig,
				Err:         errors.New("stream layout mismatch at " + filepath.Base(in)),
			}
		}
	}
	return nil
}

func (s *Service) stage(pipeline, stage, requestID, format string, args ...interface{}) {
	metrics.PipelineStageTotal.WithLabelValues(pipeline, stage).Inc()
	logging.Request(logging.LevelDebug, requestID, "[%s/%s] %s", pipeline, stage, fmt.Sprintf(format, args...))
}

// fail records the failed transition and returns err.
func (s *Service) fail(pipeline, requestID string, err *Error) *Error {
	metrics.PipelineStageTotal.WithLabelValues(pipeline, "failed").Inc()
	metrics.PipelineFailuresTotal.WithLabelValues(pipeline, string(err.Kind)).Inc()

	level := logging.LevelWarn
	if err.Kind == KindIO || err.Kind == KindTranscode || err.Kind == KindTimeout {
		level = logging.LevelError
	}
	logging.Request(level, requestID, "%s failed: %v", pipeline, err)
	if err.Diagnostics != "" {
		logging.Request(level, requestID, "%s diagnostics:\n%s", pipeline, err.Diagnostics)
	}
	return err
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
