package transcoder

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned for requests that can never succeed, such
	// as a concat of fewer than two files.
	ErrInvalidInput = errors.New("invalid transcoder input")

	// ErrTimeout is returned when a job exceeds the configured ceiling.
	ErrTimeout = errors.New("transcode timed out")
)

// MissingInputsError lists every input path that did not exist when a job
// was about to start. No process is spawned when this is returned.
type MissingInputsError struct {
	Paths []string
}

func (e *MissingInputsError) Error() string {
	return fmt.Sprintf("input files not found: %s", strings.Join(e.Paths, ", "))
}

// ExitError reports an encoder run that failed, carrying the tail of the
// tool's diagnostic output.
type ExitError struct {
	Mode        Mode
	ExitCode    int
	Diagnostics string
	Err         error
}

func (e *ExitError) Error() string {
	if e.Diagnostics == "" {
		return fmt.Sprintf("%s failed (exit %d): %v", e.Mode, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s failed (exit %d): %v: %s", e.Mode, e.ExitCode, e.Err, lastLine(e.Diagnostics))
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if idx := strings.LastIndexByte(s, '\n'); idx != -1 {
		return s[idx+1:]
	}
	return s
}
