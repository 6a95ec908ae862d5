// Package engine is the host-facing entry point: it owns the helper daemon
// and the tier resolver, and serves one snapshot per Poll.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"ondo/internal/collector"
	"ondo/internal/config"
	"ondo/internal/logger"
)

// ErrShutdown is returned by Poll after Shutdown.
var ErrShutdown = errors.New("engine is shut down")

// Engine serves snapshots from the highest-priority working tier.
type Engine struct {
	resolver *collector.Resolver
	daemon   *collector.Daemon // nil when no helper tier is configured

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// New creates an engine for the current platform. No helper process is
// started until the first Poll.
func New(cfg config.SensorConfig) *Engine {
	var daemon *collector.Daemon
	if useHelper(cfg) {
		locator := collector.HelperLocator{Path: cfg.HelperPath, Name: cfg.HelperName}
		daemon = collector.NewDaemon(collector.DaemonOptions{
			Locate:      locator.Locate,
			Interval:    cfg.DaemonInterval,
			StopTimeout: cfg.StopTimeout,
			BackoffMax:  cfg.RestartBackoffMax,
		})
	}
	return NewWithSources(daemon, DefaultSources(cfg, daemon)...)
}

// NewWithSources creates an engine over explicit tiers. daemon, if non-nil,
// is released by Shutdown.
func NewWithSources(daemon *collector.Daemon, sources ...collector.Source) *Engine {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	log := logger.WithComponent("engine")
	log.Info().Strs("tiers", names).Msg("Sensor engine created")

	return &Engine{
		resolver: collector.NewResolver(sources...),
		daemon:   daemon,
	}
}

func useHelper(cfg config.SensorConfig) bool {
	return runtime.GOOS == "windows" && !cfg.Simulate
}

// DefaultSources returns the tier order for cfg: daemon, one-shot helper and
// OS queries on Windows; the simulation tier everywhere else or when
// simulation is forced.
func DefaultSources(cfg config.SensorConfig, daemon *collector.Daemon) []collector.Source {
	if !useHelper(cfg) || daemon == nil {
		return []collector.Source{collector.NewSimulatedSource(0)}
	}

	locator := collector.HelperLocator{Path: cfg.HelperPath, Name: cfg.HelperName}
	gpu := collector.NvidiaSMI{Path: cfg.NvidiaSMIPath, Timeout: cfg.NvidiaSMITimeout}

	return []collector.Source{
		collector.NewDaemonSource(daemon),
		collector.NewCLISource(locator.Locate, cfg.OneShotTimeout).YieldTo(daemon),
		collector.NewWMISource(gpu),
	}
}

type pollResult struct {
	snap *collector.Snapshot
	err  error
}

// Poll resolves one snapshot off the caller's goroutine. It returns early
// with ctx.Err() when ctx is done. The only poll-level failure is a panic
// inside a tier; source failures are reported inside the snapshot.
func (e *Engine) Poll(ctx context.Context) (*collector.Snapshot, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrShutdown
	}
	e.inflight.Add(1)
	e.mu.Unlock()

	done := make(chan pollResult, 1)
	go func() {
		defer e.inflight.Done()
		done <- e.resolve(ctx)
	}()

	select {
	case res := <-done:
		return res.snap, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) resolve(ctx context.Context) (res pollResult) {
	log := logger.WithComponent("engine")
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Sensor poll panicked")
			res = pollResult{err: fmt.Errorf("sensor poll failed: %v", r)}
		}
	}()

	snap := e.resolver.Resolve(ctx)
	if snap.CPU == nil && snap.GPU == nil {
		detail := "unknown"
		if snap.CPUError != nil {
			detail = *snap.CPUError
		}
		log.Error().Str("tier", e.resolver.Tier()).Msgf("Both CPU and GPU data unavailable: %s", detail)
	}
	return pollResult{snap: snap}
}

// Tier returns the tier that served the most recent snapshot.
func (e *Engine) Tier() string {
	return e.resolver.Tier()
}

// Shutdown releases the helper daemon and waits for in-flight polls.
// Safe to call more than once.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	if e.daemon != nil {
		e.daemon.Shutdown()
	}
	e.inflight.Wait()
	log := logger.WithComponent("engine")
	log.Info().Msg("Sensor engine shut down")
}
