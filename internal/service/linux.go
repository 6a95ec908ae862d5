//go:build !windows
// +build !windows

package service

import (
	"context"
	"os"
)

// LinuxService runs the agent in the foreground until SIGINT or SIGTERM.
type LinuxService struct {
	*agent
}

// New creates the platform-specific service.
func New(opts Options) Service {
	return &LinuxService{agent: newAgent(opts)}
}

// Run blocks until the agent body returns or a stop is requested, and
// releases the engine before returning.
func (s *LinuxService) Run(ctx context.Context) error {
	return s.runInteractive(ctx)
}

// Stop requests the service to stop.
func (s *LinuxService) Stop() error {
	s.requestStop()
	return nil
}

// IsService reports whether stdin is not a terminal, which is the case under
// systemd and other supervisors.
func (s *LinuxService) IsService() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) == 0
}
