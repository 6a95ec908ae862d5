// Package scheduler polls the sensor engine on a fixed interval and hands
// each snapshot to a sender.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"ondo/internal/collector"
	"ondo/internal/logger"
	"ondo/internal/sender"
)

const sendTimeout = 10 * time.Second

// Poller produces one snapshot per call.
type Poller interface {
	Poll(ctx context.Context) (*collector.Snapshot, error)
}

// Scheduler manages the periodic polling of the engine.
type Scheduler struct {
	poller  Poller
	sender  sender.Sender
	timeout time.Duration
	clock   clock.Clock

	mu       sync.Mutex
	interval time.Duration
	running  bool
	cancel   context.CancelFunc
	reset    chan struct{}
	wg       sync.WaitGroup
}

// New creates a scheduler. A nil clk uses the wall clock.
func New(p Poller, s sender.Sender, interval, timeout time.Duration, clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		poller:   p,
		sender:   s,
		interval: interval,
		timeout:  timeout,
		clock:    clk,
		reset:    make(chan struct{}, 1),
	}
}

// Start begins polling: once immediately, then once per interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	log := logger.WithComponent("scheduler")
	log.Info().
		Dur("interval", s.currentInterval()).
		Dur("timeout", s.timeout).
		Msg("Starting scheduler")

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// Stop stops the scheduler and waits for the in-progress poll to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	log := logger.WithComponent("scheduler")
	log.Info().Msg("Stopping scheduler")

	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Reconfigure changes the poll interval. A running loop restarts its ticker;
// the next poll happens one new interval from now.
func (s *Scheduler) Reconfigure(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	changed := interval != s.interval
	s.interval = interval
	running := s.running
	s.mu.Unlock()

	if !changed {
		return
	}
	log := logger.WithComponent("scheduler")
	log.Info().Dur("interval", interval).Msg("Poll interval updated")

	if running {
		select {
		case s.reset <- struct{}{}:
		default:
		}
	}
}

func (s *Scheduler) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.Ticker(s.currentInterval())
	defer func() { ticker.Stop() }()

	// Initial poll
	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			log := logger.WithComponent("scheduler")
			log.Debug().Msg("Poll loop stopped")
			return
		case <-s.reset:
			ticker.Stop()
			ticker = s.clock.Ticker(s.currentInterval())
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Scheduler) poll(ctx context.Context) {
	log := logger.WithComponent("scheduler")

	pollCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := s.clock.Now()
	snap, err := s.poller.Poll(pollCtx)
	duration := s.clock.Since(startTime)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().
			Err(err).
			Dur("duration", duration).
			Msg("Poll failed")
		return
	}

	sendCtx, sendCancel := context.WithTimeout(ctx, sendTimeout)
	defer sendCancel()

	if err := s.sender.Send(sendCtx, snap); err != nil {
		log.Error().
			Err(err).
			Msg("Failed to send snapshot")
		return
	}

	log.Debug().
		Dur("duration", duration).
		Uint64("timestamp", snap.Timestamp).
		Msg("Poll completed")
}
