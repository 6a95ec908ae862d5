//go:build windows
// +build windows

package service

import (
	"context"
	"time"

	"golang.org/x/sys/windows/svc"

	"ondo/internal/logger"
)

// WindowsService runs the agent under the service control manager, or
// interactively when started from a console.
type WindowsService struct {
	*agent
}

// New creates the platform-specific service.
func New(opts Options) Service {
	return &WindowsService{agent: newAgent(opts)}
}

// Run starts the service.
func (s *WindowsService) Run(ctx context.Context) error {
	if !s.IsService() {
		return s.runInteractive(ctx)
	}
	return svc.Run(Name, s)
}

// Stop requests the service to stop.
func (s *WindowsService) Stop() error {
	s.requestStop()
	return nil
}

// IsService returns true if running as a Windows service.
func (s *WindowsService) IsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// Execute implements the svc.Handler interface.
func (s *WindowsService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (svcSpecificEC bool, exitCode uint32) {
	log := logger.WithComponent("windows-service")

	changes <- svc.Status{State: svc.StartPending}
	done := s.start(context.Background())
	changes <- svc.Status{State: svc.Running, Accepts: svc.AcceptStop | svc.AcceptShutdown}
	log.Info().Msg("Windows service started")

	stop := func() (bool, uint32) {
		changes <- svc.Status{State: svc.StopPending, WaitHint: uint32(s.opts.StopGrace / time.Millisecond)}
		s.requestStop()
		if err := s.drain(done, nil); err != nil {
			log.Error().Err(err).Msg("Agent stopped with error")
		}
		changes <- svc.Status{State: svc.Stopped}
		return false, 0
	}

	for {
		select {
		case c := <-r:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
				// Respond twice as per documentation
				time.Sleep(100 * time.Millisecond)
				changes <- c.CurrentStatus

			case svc.Stop, svc.Shutdown:
				log.Info().Msg("Received stop signal from Windows service control")
				return stop()

			default:
				log.Warn().Int("cmd", int(c.Cmd)).Msg("Unexpected service control command")
			}

		case <-s.stopCh:
			return stop()

		case err := <-done:
			s.release()
			changes <- svc.Status{State: svc.Stopped}
			if err != nil {
				log.Error().Err(err).Msg("Service run function exited with error")
				return true, 1
			}
			return false, 0
		}
	}
}
