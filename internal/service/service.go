// Package service runs the agent under the platform's service manager, or
// interactively with signal handling.
package service

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ondo/internal/logger"
)

// Name is the service and event source name.
const Name = "Ondo"

// DefaultStopGrace bounds how long a stop request waits for Run to return.
const DefaultStopGrace = 30 * time.Second

// ErrStopTimeout is returned when the agent body outlives the stop grace.
var ErrStopTimeout = errors.New("agent did not stop within grace period")

// Service defines the interface for platform-specific service management.
type Service interface {
	// Run starts the service. It blocks until the service is stopped.
	Run(ctx context.Context) error

	// Stop requests the service to stop.
	Stop() error

	// IsService returns true if running as a system service.
	IsService() bool
}

// RunFunc is the agent body. It must return once ctx is cancelled.
type RunFunc func(ctx context.Context) error

// Options configures a Service.
type Options struct {
	Run RunFunc

	// Release stops the sensor engine and its helper process. It is called
	// exactly once when Run returns, or when the stop grace expires first.
	Release func()

	// StopGrace defaults to DefaultStopGrace.
	StopGrace time.Duration
}

// agent is the platform-independent lifecycle shared by every Service.
type agent struct {
	opts Options

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopping bool
	stopCh   chan struct{}

	releaseOnce sync.Once
}

func newAgent(opts Options) *agent {
	if opts.StopGrace <= 0 {
		opts.StopGrace = DefaultStopGrace
	}
	return &agent{opts: opts, stopCh: make(chan struct{})}
}

// start runs the agent body on its own goroutine. A stop requested before
// start cancels the body's context immediately.
func (a *agent) start(ctx context.Context) <-chan error {
	a.mu.Lock()
	ctx, a.cancel = context.WithCancel(ctx)
	if a.stopping {
		a.cancel()
	}
	a.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		if a.opts.Run == nil {
			<-ctx.Done()
			done <- nil
			return
		}
		done <- a.opts.Run(ctx)
	}()
	return done
}

// requestStop cancels the body's context. Repeated calls are no-ops.
func (a *agent) requestStop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopping {
		return
	}
	a.stopping = true
	close(a.stopCh)
	if a.cancel != nil {
		a.cancel()
	}
}

// drain waits for the body after a stop request, then releases the engine.
// A signal on abort gives up waiting.
func (a *agent) drain(done <-chan error, abort <-chan os.Signal) error {
	log := logger.WithComponent("service")
	defer a.release()

	timer := time.NewTimer(a.opts.StopGrace)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case sig := <-abort:
		log.Warn().Str("signal", sig.String()).Msg("Received second signal, forcing exit")
		return nil
	case <-timer.C:
		log.Warn().Dur("grace", a.opts.StopGrace).Msg("Timeout waiting for agent to stop")
		return ErrStopTimeout
	}
}

func (a *agent) release() {
	a.releaseOnce.Do(func() {
		if a.opts.Release == nil {
			return
		}
		log := logger.WithComponent("service")
		log.Info().Msg("Releasing sensor engine")
		a.opts.Release()
	})
}

// runInteractive runs the body in the foreground until it returns, Stop is
// called, or SIGINT/SIGTERM arrives.
func (a *agent) runInteractive(ctx context.Context) error {
	log := logger.WithComponent("service")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := a.start(ctx)
	log.Info().Msg("Service started")

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		a.requestStop()
	case <-a.stopCh:
	case err := <-done:
		a.release()
		return err
	}

	return a.drain(done, sigChan)
}
