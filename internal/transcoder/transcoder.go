package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"video-captioner/internal/filesystem"
	"video-captioner/internal/logging"
	"video-captioner/internal/metrics"
	"video-captioner/internal/storage"
)

// Config controls how the encoder is invoked.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	VideoCodec  string
	// FrameFormat is the image format ExtractFrame emits: png or webp.
	FrameFormat   string
	MaxConcurrent int
	// JobTimeout bounds a single encoder run, 0 disables the ceiling.
	JobTimeout time.Duration
}

// DefaultConfig returns the invocation settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
		VideoCodec:    "libx264",
		FrameFormat:   "png",
		MaxConcurrent: 2,
	}
}

// frameCodecs maps a frame format to the ffmpeg encoder that produces it.
var frameCodecs = map[string]string{
	"png":  "png",
	"webp": "libwebp",
}

// Transcoder runs caption-burn and concat jobs through a Runner.
type Transcoder struct {
	cfg    Config
	runner Runner
	slots  *semaphore
}

type killer interface {
	KillAll()
}

// New creates a Transcoder. Zero fields in cfg take their DefaultConfig values.
func New(cfg Config, runner Runner) *Transcoder {
	def := DefaultConfig()
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = def.FFmpegPath
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = def.FFprobePath
	}
	if cfg.VideoCodec == "" {
		cfg.VideoCodec = def.VideoCodec
	}
	if _, ok := frameCodecs[cfg.FrameFormat]; !ok {
		if cfg.FrameFormat != "" {
			logging.Warn("Unknown frame format %q, using %s", cfg.FrameFormat, def.FrameFormat)
		}
		cfg.FrameFormat = def.FrameFormat
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if runner == nil {
		runner = NewExecRunner()
	}

	return &Transcoder{
		cfg:    cfg,
		runner: runner,
		slots:  newSemaphore(cfg.MaxConcurrent),
	}
}

// Available checks that the encoder binary can be found.
func (t *Transcoder) Available() error {
	if _, err := exec.LookPath(t.cfg.FFmpegPath); err != nil {
		return fmt.Errorf("encoder %q not found: %w", t.cfg.FFmpegPath, err)
	}
	return nil
}

// Capacity returns the configured job limit and the number of slots in use.
func (t *Transcoder) Capacity() (limit, inUse int) {
	return t.slots.capacity(), t.slots.inUse()
}

// BurnCaption re-encodes videoPath with the SubRip track at captionPath
// rendered into the picture and writes the result to outputPath. Audio is
// copied unchanged. Both inputs must exist; otherwise a MissingInputsError
// is returned and no process is started.
func (t *Transcoder) BurnCaption(ctx context.Context, jobID, videoPath, captionPath, outputPath string) (string, error) {
	if err := checkInputs(videoPath, captionPath); err != nil {
		metrics.TranscoderJobsTotal.WithLabelValues(string(ModeCaptionBurn), "rejected").Inc()
		return "", err
	}

	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("subtitles='%s'", storage.EscapeFilterPath(captionPath)),
		"-c:v", t.cfg.VideoCodec,
		"-c:a", "copy",
		outputPath,
	}

	if err := t.runJob(ctx, jobID, ModeCaptionBurn, args, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// Concat joins inputs in order into outputPath by stream copy. The inputs
// must share codec parameters; that is not checked here. manifestPath is
// written fresh with one entry per input and left in place afterwards.
func (t *Transcoder) Concat(ctx context.Context, jobID string, inputs []string, manifestPath, outputPath string) (string, error) {
	if len(inputs) < 2 {
		metrics.TranscoderJobsTotal.WithLabelValues(string(ModeConcat), "rejected").Inc()
		return "", fmt.Errorf("%w: concat needs at least two inputs, got %d", ErrInvalidInput, len(inputs))
	}
	if err := checkInputs(inputs...); err != nil {
		metrics.TranscoderJobsTotal.WithLabelValues(string(ModeConcat), "rejected").Inc()
		return "", err
	}

	if err := WriteManifest(manifestPath, inputs); err != nil {
		return "", err
	}

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		outputPath,
	}

	if err := t.runJob(ctx, jobID, ModeConcat, args, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// ExtractFrame writes one PNG frame from videoPath to w. The frame is taken
// one second in, falling back to the first frame for shorter videos.
func (t *Transcoder) ExtractFrame(ctx context.Context, jobID, videoPath string, w io.Writer) error {
	if err := checkInputs(videoPath); err != nil {
		return err
	}

	var lastErr error
	for _, seek := range []string{"00:00:01", ""} {
		var args []string
		if seek != "" {
			args = append(args, "-ss", seek)
		}
		args = append(args, "-i", videoPath, "-frames:v", "1", "-f", "image2pipe", "-vcodec", frameCodecs[t.cfg.FrameFormat], "-")

		var out bytes.Buffer
		if err := t.runJobTo(ctx, jobID, ModePoster, args, "", &out); err != nil {
			lastErr = err
			continue
		}
		if out.Len() > 0 {
			_, err := w.Write(out.Bytes())
			return err
		}
		logging.Debug("No frame at %q for %s, retrying from start", seek, videoPath)
	}

	if lastErr == nil {
		lastErr = &ExitError{Mode: ModePoster, Err: errors.New("encoder produced no frame")}
	}
	return lastErr
}

// Cleanup stops all running encoder processes.
func (t *Transcoder) Cleanup() {
	if k, ok := t.runner.(killer); ok {
		k.KillAll()
	}
}

func (t *Transcoder) runJob(ctx context.Context, jobID string, mode Mode, args []string, outputPath string) error {
	return t.runJobTo(ctx, jobID, mode, args, outputPath, nil)
}

// runJobTo waits for a slot, runs the encoder under the job timeout, and
// records metrics. A failed run removes any partial output.
func (t *Transcoder) runJobTo(ctx context.Context, jobID string, mode Mode, args []string, outputPath string, stdout io.Writer) error {
	label := string(mode)

	waitStart := time.Now()
	if err := t.slots.acquire(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.TranscoderJobsTotal.WithLabelValues(label, "timeout").Inc()
			return fmt.Errorf("%w: waiting for a free encoder slot: %v", ErrTimeout, err)
		}
		metrics.TranscoderJobsTotal.WithLabelValues(label, "cancelled").Inc()
		return fmt.Errorf("waiting for a free encoder slot: %w", err)
	}
	defer t.slots.release()
	metrics.TranscoderQueueWait.WithLabelValues(label).Observe(time.Since(waitStart).Seconds())

	jobCtx := ctx
	if t.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, t.cfg.JobTimeout)
		defer cancel()
	}

	metrics.TranscoderJobsInProgress.WithLabelValues(label).Inc()
	defer metrics.TranscoderJobsInProgress.WithLabelValues(label).Dec()

	start := time.Now()
	err := t.runner.Run(jobCtx, Invocation{
		JobID:   jobID,
		Mode:    mode,
		Binary:  t.cfg.FFmpegPath,
		Args:    args,
		Stdout:  stdout,
		OnEvent: logEvent,
	})
	metrics.TranscoderJobDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if err == nil && outputPath != "" && !filesystem.RegularFileExists(outputPath) {
		err = &ExitError{Mode: mode, Err: fmt.Errorf("encoder finished but %s was not written", outputPath)}
	}

	if err != nil {
		if outputPath != "" {
			removePartial(outputPath)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			metrics.TranscoderJobsTotal.WithLabelValues(label, "timeout").Inc()
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		metrics.TranscoderJobsTotal.WithLabelValues(label, "error").Inc()
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			err = &ExitError{Mode: mode, ExitCode: -1, Err: err}
		}
		return err
	}

	metrics.TranscoderJobsTotal.WithLabelValues(label, "success").Inc()
	return nil
}

// checkInputs returns a MissingInputsError naming every path that is not
// an existing regular file.
func checkInputs(paths ...string) error {
	var missing []string
	for _, p := range paths {
		if !filesystem.RegularFileExists(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &MissingInputsError{Paths: missing}
	}
	return nil
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove partial output %s: %v", path, err)
	}
}

func logEvent(e Event) {
	switch e.Type {
	case EventStart:
		logging.Request(logging.LevelDebug, e.JobID, "FFmpeg command: %s", e.Message)
	case EventDiagnostic:
		logging.Request(logging.LevelDebug, e.JobID, "FFmpeg: %s", e.Message)
	case EventError:
		logging.Request(logging.LevelWarn, e.JobID, "%s run failed: %s", e.Mode, e.Message)
	case EventComplete:
		logging.Request(logging.LevelDebug, e.JobID, "%s run complete", e.Mode)
	}
}
