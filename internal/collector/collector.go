// Package collector acquires hardware sensor snapshots from a tiered set of
// sources: a supervised helper daemon, the helper in one-shot mode, OS
// instrumentation queries, and a simulation used off Windows.
package collector

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNoPayload is returned by the daemon tier when no helper is running.
	ErrNoPayload = errors.New("helper daemon has no reading")

	// ErrDaemonWarmingUp is returned by the daemon tier while a live helper
	// has not produced its first reading.
	ErrDaemonWarmingUp = errors.New("helper daemon is warming up")

	// ErrDaemonActive is returned by the one-shot tier while a helper daemon
	// is alive, so the two never contend for the sensors.
	ErrDaemonActive = errors.New("helper daemon is running")
)

// Source is one ranked tier in the fallback chain.
type Source interface {
	// Name returns the tier's identifier used in logs and error strings.
	Name() string

	// Fetch returns an untimestamped snapshot, or an error if the tier
	// cannot serve this poll and the next tier should be tried.
	Fetch(ctx context.Context) (*Snapshot, error)
}

// DaemonSource serves snapshots from the supervised helper daemon.
type DaemonSource struct {
	daemon *Daemon
}

// NewDaemonSource wraps a supervisor as a tier.
func NewDaemonSource(d *Daemon) *DaemonSource {
	return &DaemonSource{daemon: d}
}

// Name returns "daemon".
func (s *DaemonSource) Name() string { return "daemon" }

// Fetch returns the supervisor's latest payload.
func (s *DaemonSource) Fetch(_ context.Context) (*Snapshot, error) {
	p := s.daemon.Acquire()
	if p == nil {
		if s.daemon.Running() {
			return nil, ErrDaemonWarmingUp
		}
		return nil, ErrNoPayload
	}
	return p.Snapshot(), nil
}

// CLISource runs the helper once without streaming mode and parses its output.
type CLISource struct {
	locate  func() (string, error)
	timeout time.Duration
	daemon  *Daemon
}

// NewCLISource creates a one-shot tier. A non-positive timeout defaults to 5s.
func NewCLISource(locate func() (string, error), timeout time.Duration) *CLISource {
	if locate == nil {
		locate = HelperLocator{}.Locate
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CLISource{locate: locate, timeout: timeout}
}

// YieldTo makes the tier step aside whenever d has a live helper process.
func (s *CLISource) YieldTo(d *Daemon) *CLISource {
	s.daemon = d
	return s
}

// Name returns "cli".
func (s *CLISource) Name() string { return "cli" }

// Fetch runs the helper under a bounded wait. Timeout, non-zero exit or an
// unparsable document fail the tier.
func (s *CLISource) Fetch(ctx context.Context) (*Snapshot, error) {
	if s.daemon != nil && s.daemon.Running() {
		return nil, ErrDaemonActive
	}

	path, err := s.locate()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path)
	cmd.WaitDelay = time.Second
	hideConsole(cmd)

	out, err := cmd.Output()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("helper one-shot timed out after %s", s.timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			return nil, fmt.Errorf("helper one-shot failed (exit %d): %s", exitErr.ExitCode(), stderr)
		}
		return nil, fmt.Errorf("failed to run helper one-shot: %w", err)
	}

	p, err := ParsePayload(out)
	if err != nil {
		return nil, err
	}
	return p.Snapshot(), nil
}
