package transcoder

import (
	"context"
	"path/filepath"
	"testing"
)

const sampleProbe = `{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720, "pix_fmt": "yuv420p"},
    {"codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"duration": "12.480000"}
}`

func TestParseProbeOutput(t *testing.T) {
	info, err := parseProbeOutput("/v.mp4", []byte(sampleProbe))
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}

	if info.Duration != 12.48 {
		t.Errorf("Duration = %v, want 12.48", info.Duration)
	}
	if len(info.Streams) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(info.Streams))
	}
	if want := "v:h264:1280x720:yuv420p|a:aac:48000:2"; info.Signature() != want {
		t.Errorf("Signature() = %q, want %q", info.Signature(), want)
	}
}

func TestParseProbeOutputInvalid(t *testing.T) {
	if _, err := parseProbeOutput("/v.mp4", []byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSignatureIgnoresOtherStreams(t *testing.T) {
	a := &VideoInfo{Streams: []StreamInfo{
		{CodecType: "video", CodecName: "h264", Width: 640, Height: 360},
		{CodecType: "data", CodecName: "bin_data"},
	}}
	b := &VideoInfo{Streams: []StreamInfo{
		{CodecType: "video", CodecName: "h264", Width: 640, Height: 360},
	}}

	if a.Signature() != b.Signature() {
		t.Errorf("signatures differ: %q vs %q", a.Signature(), b.Signature())
	}
}

func TestProbeUsesProbeBinary(t *testing.T) {
	dir := t.TempDir()
	video := writeFile(t, dir, "v.mp4")

	spy := &spyRunner{stdout: []byte(sampleProbe)}
	tr := New(Config{FFprobePath: "/opt/ffprobe"}, spy)

	info, err := tr.Probe(context.Background(), "job", video)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Path != video {
		t.Errorf("Path = %q, want %q", info.Path, video)
	}
	if len(spy.calls) != 1 || spy.calls[0].Binary != "/opt/ffprobe" {
		t.Errorf("expected one ffprobe invocation, got %+v", spy.calls)
	}
	if _, inUse := tr.Capacity(); inUse != 0 {
		t.Errorf("probe should not hold an encoder slot")
	}
}

func TestProbeMissingFile(t *testing.T) {
	spy := &spyRunner{}
	tr := New(Config{}, spy)

	if _, err := tr.Probe(context.Background(), "job", filepath.Join(t.TempDir(), "nope.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
	if len(spy.calls) != 0 {
		t.Errorf("expected no invocations, got %d", len(spy.calls))
	}
}
