// Package caption writes the single-cue SubRip track that the transcoder
// burns into uploaded videos.
package caption

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// SentinelEnd is the end time of the only cue. The real duration is not
// probed, so the cue is stretched past any plausible video length.
const SentinelEnd = 99 * time.Hour

// Synthesize writes a SubRip file at path holding one cue that spans from
// zero to SentinelEnd with text as its payload. An existing file is
// replaced, so repeated calls leave exactly one cue.
//
// The text is written verbatim. A blank line inside text ends the cue early
// in SubRip, and no escaping is applied. Empty text is the caller's concern.
func Synthesize(text, path string) error {
	var b strings.Builder
	b.WriteString("1\n")
	b.WriteString(FormatTimestamp(0))
	b.WriteString(" --> ")
	b.WriteString(FormatTimestamp(SentinelEnd))
	b.WriteString("\n")
	b.WriteString(text)
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write caption track: %w", err)
	}
	return nil
}

// FormatTimestamp renders d in SubRip form, HH:MM:SS,mmm. Negative
// durations clamp to zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	minutes := (ms / 60_000) % 60
	seconds := (ms / 1000) % 60
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
