package collector

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"ondo/internal/logger"
)

// DaemonOptions configures the helper daemon supervisor.
type DaemonOptions struct {
	// Locate resolves the helper binary. Defaults to HelperLocator{}.Locate.
	Locate func() (string, error)

	// Interval is the helper's sampling interval, passed as "--daemon <ms>".
	Interval time.Duration

	// StopTimeout bounds how long Shutdown waits for the killed process to exit.
	StopTimeout time.Duration

	// BackoffMax caps the relaunch delay after repeated crashes.
	BackoffMax time.Duration

	// BufferLines is the capacity of the line queue between the reader and Acquire.
	// When full, the oldest line is dropped.
	BufferLines int

	// MaxLineBytes bounds one payload line. Longer lines are discarded whole
	// and reading continues with the next line.
	MaxLineBytes int

	Clock clock.Clock
}

func (o *DaemonOptions) applyDefaults() {
	if o.Locate == nil {
		o.Locate = HelperLocator{}.Locate
	}
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = 5 * time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 60 * time.Second
	}
	if o.BufferLines <= 0 {
		o.BufferLines = 8
	}
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = 1024 * 1024
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
}

// Daemon supervises at most one long-lived helper process streaming one JSON
// payload per line. Acquire never blocks on process I/O: a reader goroutine
// queues lines and Acquire drains whatever is already queued.
type Daemon struct {
	opts DaemonOptions

	mu     sync.Mutex
	proc   *daemonProcess
	cache  *Payload
	closed bool

	// Crash-loop protection
	crashes    int
	nextLaunch time.Time
}

// daemonProcess is one running helper. exited is CLOSED (not sent on) once the
// process has exited and its output is fully read, so it is safe for repeated
// non-blocking checks.
type daemonProcess struct {
	cmd     *exec.Cmd
	lines   chan []byte
	exited  chan struct{}
	maxLine int
}

// NewDaemon creates a supervisor. No process is started until the first Acquire.
func NewDaemon(opts DaemonOptions) *Daemon {
	opts.applyDefaults()
	return &Daemon{opts: opts}
}

// Acquire returns the freshest available payload, or nil when the helper is
// not running or has produced nothing yet. Overlapping callers serialize on
// the supervisor lock and never start a second process.
func (d *Daemon) Acquire() *Payload {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	log := logger.WithComponent("daemon")

	if d.proc == nil {
		if now := d.opts.Clock.Now(); now.Before(d.nextLaunch) {
			log.Debug().
				Int("crashes", d.crashes).
				Dur("remaining", d.nextLaunch.Sub(now)).
				Msg("Helper relaunch deferred")
			return nil
		}
		if err := d.launch(); err != nil {
			log.Debug().Err(err).Msg("Helper daemon not started")
			return nil
		}
	}

	if !d.proc.alive() {
		code := -1
		if st := d.proc.cmd.ProcessState; st != nil {
			code = st.ExitCode()
		}
		d.proc = nil
		d.cache = nil
		d.recordCrash()
		log.Warn().
			Int("exit_code", code).
			Int("crashes", d.crashes).
			Msg("Helper daemon exited, state discarded")
		return nil
	}

	if line := d.proc.latest(); line != nil {
		p, err := ParsePayload(line)
		if err != nil {
			log.Warn().Err(err).Msg("Discarding malformed helper line, keeping previous reading")
		} else {
			d.cache = p
			d.crashes = 0
		}
	}

	return d.cache
}

// Shutdown kills the tracked process, if any, and waits briefly for it to
// exit. It is idempotent and safe to call when nothing was ever started. The
// supervisor does not relaunch after Shutdown.
func (d *Daemon) Shutdown() {
	d.mu.Lock()
	d.closed = true
	p := d.proc
	d.proc = nil
	d.cache = nil
	d.mu.Unlock()

	if p == nil {
		return
	}

	log := logger.WithComponent("daemon")
	pid := p.cmd.Process.Pid
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Debug().Err(err).Int("pid", pid).Msg("Failed to kill helper daemon")
	}

	select {
	case <-p.exited:
		log.Info().Int("pid", pid).Msg("Helper daemon stopped")
	case <-time.After(d.opts.StopTimeout):
		log.Warn().Int("pid", pid).Dur("timeout", d.opts.StopTimeout).Msg("Helper daemon did not exit in time")
	}
}

// Running reports whether a live helper process is tracked.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.proc != nil && d.proc.alive()
}

// PID returns the tracked helper's process id, or 0.
func (d *Daemon) PID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.proc == nil {
		return 0
	}
	return d.proc.cmd.Process.Pid
}

// launch starts the helper in streaming mode. Must be called with d.mu held.
// Starting a process does not wait on it, so the lock is never held across a
// blocking wait.
func (d *Daemon) launch() error {
	path, err := d.opts.Locate()
	if err != nil {
		return err
	}

	interval := strconv.FormatInt(d.opts.Interval.Milliseconds(), 10)
	cmd := exec.Command(path, "--daemon", interval)
	cmd.Stdin = nil
	cmd.Stderr = nil // discarded
	hideConsole(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	p := &daemonProcess{
		cmd:     cmd,
		lines:   make(chan []byte, d.opts.BufferLines),
		exited:  make(chan struct{}),
		maxLine: d.opts.MaxLineBytes,
	}

	// Wait must not be called before all reads from the pipe complete.
	go func() {
		if err := p.read(stdout); err != nil {
			log := logger.WithComponent("daemon")
			log.Warn().Err(err).Int("pid", cmd.Process.Pid).Msg("Helper output unreadable, stopping helper")
			_ = cmd.Process.Kill()
		}
		_ = cmd.Wait()
		close(p.exited)
	}()

	d.proc = p

	log := logger.WithComponent("daemon")
	log.Info().
		Int("pid", cmd.Process.Pid).
		Str("path", path).
		Str("interval_ms", interval).
		Msg("Helper daemon started")

	return nil
}

// recordCrash schedules the next launch. The first relaunch after a crash is
// immediate; repeated crashes back off 1s, 2s, 4s ... up to BackoffMax.
func (d *Daemon) recordCrash() {
	d.crashes++
	d.nextLaunch = d.opts.Clock.Now().Add(crashBackoff(d.crashes, d.opts.BackoffMax))
}

func crashBackoff(crashes int, max time.Duration) time.Duration {
	if crashes <= 1 {
		return 0
	}
	shift := crashes - 2
	if shift > 30 {
		shift = 30
	}
	backoff := time.Duration(1<<shift) * time.Second
	if backoff > max {
		backoff = max
	}
	return backoff
}

// read forwards non-empty stdout lines into the queue until EOF. A line
// longer than maxLine is dropped without stalling the stream. The returned
// error is nil on EOF.
func (p *daemonProcess) read(r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	oversized := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > p.maxLine {
				oversized = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if oversized {
			log := logger.WithComponent("daemon")
			log.Warn().Int("limit", p.maxLine).Msg("Discarding oversized helper line")
		} else if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			p.push(append([]byte(nil), trimmed...))
		}
		line = line[:0]
		oversized = false

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// push enqueues a line, dropping the oldest queued line when full. Only the
// reader goroutine pushes, so the loop terminates.
func (p *daemonProcess) push(line []byte) {
	for {
		select {
		case p.lines <- line:
			return
		default:
		}
		select {
		case <-p.lines:
		default:
		}
	}
}

// latest drains the queue without waiting and returns the newest line, or nil.
// Older lines are intermediate ticks and are discarded.
func (p *daemonProcess) latest() []byte {
	var last []byte
	for {
		select {
		case line := <-p.lines:
			last = line
		default:
			return last
		}
	}
}

func (p *daemonProcess) alive() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}
