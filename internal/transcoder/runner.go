package transcoder

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"video-captioner/internal/logging"
)

// Mode identifies what an invocation does. It doubles as a metrics label.
type Mode string

const (
	ModeCaptionBurn Mode = "caption-burn"
	ModeConcat      Mode = "concat"
	ModePoster      Mode = "poster"
	ModeProbe       Mode = "probe"
)

// EventType classifies the signals an invocation emits.
type EventType string

const (
	EventStart      EventType = "start"
	EventDiagnostic EventType = "diagnostic"
	EventError      EventType = "error"
	EventComplete   EventType = "complete"
)

// Event is one signal from a running invocation. Every invocation that
// starts emits EventStart first and exactly one of EventError or
// EventComplete last.
type Event struct {
	JobID   string
	Mode    Mode
	Type    EventType
	Message string
	Time    time.Time
}

// Invocation describes a single external process run.
type Invocation struct {
	JobID  string
	Mode   Mode
	Binary string
	Args   []string
	// Stdout receives the process's standard output. Nil discards it.
	Stdout io.Writer
	// OnEvent is called synchronously for every event. Nil ignores them.
	OnEvent func(Event)
}

// CommandLine renders the invocation for logs.
func (inv Invocation) CommandLine() string {
	return strings.TrimSpace(inv.Binary + " " + strings.Join(inv.Args, " "))
}

// Runner executes invocations. The returned error is nil only when the
// process exited successfully.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

const defaultTailLines = 40

// ExecRunner runs invocations as child processes.
type ExecRunner struct {
	// TailLines is how many trailing diagnostic lines an ExitError keeps.
	TailLines int

	// processes maps each live command to its job id. JobIDs are labels
	// and need not be unique.
	processes map[*exec.Cmd]string
	processMu sync.Mutex
}

// NewExecRunner creates a runner that spawns real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		TailLines: defaultTailLines,
		processes: make(map[*exec.Cmd]string),
	}
}

// Run starts the process, streams its stderr as diagnostic events, and
// waits for it to exit. Cancelling ctx kills the process.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) error {
	emit := func(typ EventType, msg string) {
		if inv.OnEvent != nil {
			inv.OnEvent(Event{JobID: inv.JobID, Mode: inv.Mode, Type: typ, Message: msg, Time: time.Now()})
		}
	}

	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)
	cmd.WaitDelay = 5 * time.Second
	if inv.Stdout != nil {
		cmd.Stdout = inv.Stdout
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &ExitError{Mode: inv.Mode, ExitCode: -1, Err: err}
	}

	emit(EventStart, inv.CommandLine())
	if err := cmd.Start(); err != nil {
		emit(EventError, err.Error())
		return &ExitError{Mode: inv.Mode, ExitCode: -1, Err: err}
	}

	r.track(cmd, inv.JobID)
	defer r.untrack(cmd)

	tail := newLineTail(r.tailLines())
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLinesOrCR)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail.add(line)
		emit(EventDiagnostic, line)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		logging.Debug("stderr scan for job %s stopped: %v", inv.JobID, err)
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			waitErr = ctxErr
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		emit(EventError, waitErr.Error())
		return &ExitError{
			Mode:        inv.Mode,
			ExitCode:    exitCode,
			Diagnostics: tail.String(),
			Err:         waitErr,
		}
	}

	emit(EventComplete, "")
	return nil
}

// KillAll stops every process this runner has started and not yet reaped.
func (r *ExecRunner) KillAll() {
	r.processMu.Lock()
	defer r.processMu.Unlock()

	for cmd, jobID := range r.processes {
		if cmd.Process != nil {
			logging.Info("Killing encoder process for job %s", jobID)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill encoder process for job %s: %v", jobID, err)
			}
		}
	}
}

// Running returns the number of live processes.
func (r *ExecRunner) Running() int {
	r.processMu.Lock()
	defer r.processMu.Unlock()
	return len(r.processes)
}

func (r *ExecRunner) track(cmd *exec.Cmd, jobID string) {
	r.processMu.Lock()
	r.processes[cmd] = jobID
	r.processMu.Unlock()
}

func (r *ExecRunner) untrack(cmd *exec.Cmd) {
	r.processMu.Lock()
	delete(r.processes, cmd)
	r.processMu.Unlock()
}

func (r *ExecRunner) tailLines() int {
	if r.TailLines <= 0 {
		return defaultTailLines
	}
	return r.TailLines
}

// scanLinesOrCR splits on \n or \r. FFmpeg rewrites its progress line with
// carriage returns.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// lineTail keeps the last n lines added.
type lineTail struct {
	lines []string
	max   int
}

func newLineTail(max int) *lineTail {
	return &lineTail{max: max}
}

func (t *lineTail) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *lineTail) String() string {
	return strings.Join(t.lines, "\n")
}
