package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StreamInfo holds the parameters of one media stream that concat by
// stream copy needs to agree on.
type StreamInfo struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	PixFmt     string `json:"pix_fmt,omitempty"`
	SampleRate string `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// VideoInfo is the probed description of a media file.
type VideoInfo struct {
	Path     string
	Duration float64
	Streams  []StreamInfo
}

type probeOutput struct {
	Streams []StreamInfo `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads stream parameters with FFprobe. It does not take an encoder
// slot.
func (t *Transcoder) Probe(ctx context.Context, jobID, path string) (*VideoInfo, error) {
	if err := checkInputs(path); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	err := t.runner.Run(ctx, Invocation{
		JobID:  jobID,
		Mode:   ModeProbe,
		Binary: t.cfg.FFprobePath,
		Args: []string{
			"-v", "error",
			"-show_entries", "stream=codec_type,codec_name,width,height,pix_fmt,sample_rate,channels:format=duration",
			"-of", "json",
			path,
		},
		Stdout:  &out,
		OnEvent: logEvent,
	})
	if err != nil {
		return nil, err
	}

	return parseProbeOutput(path, out.Bytes())
}

func parseProbeOutput(path string, data []byte) (*VideoInfo, error) {
	var parsed probeOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse probe output for %s: %w", path, err)
	}

	info := &VideoInfo{Path: path, Streams: parsed.Streams}
	if parsed.Format.Duration != "" {
		if d, err := strconv.ParseFloat(strings.TrimSpace(parsed.Format.Duration), 64); err == nil {
			info.Duration = d
		}
	}
	return info, nil
}

// Signature summarizes the stream layout as a comparable string. Two files
// with equal signatures can be joined by stream copy.
func (v *VideoInfo) Signature() string {
	parts := make([]string, 0, len(v.Streams))
	for _, s := range v.Streams {
		switch s.CodecType {
		case "video":
			parts = append(parts, fmt.Sprintf("v:%s:%dx%d:%s", s.CodecName, s.Width, s.Height, s.PixFmt))
		case "audio":
			parts = append(parts, fmt.Sprintf("a:%s:%s:%d", s.CodecName, s.SampleRate, s.Channels))
		}
	}
	return strings.Join(parts, "|")
}
