package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ondo/internal/logger"
)

// Resolver tries sources in fixed priority order and returns the first
// snapshot served. It never fails: when every tier fails the snapshot has no
// components and carries the tier errors in cpuError and gpuError.
type Resolver struct {
	sources []Source
	now     func() time.Time

	mu       sync.Mutex
	lastTS   uint64
	lastTier string
}

// NewResolver creates a resolver over sources, highest priority first.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{
		sources: sources,
		now:     time.Now,
	}
}

// Resolve produces one timestamped snapshot.
func (r *Resolver) Resolve(ctx context.Context) *Snapshot {
	log := logger.WithComponent("resolver")

	var (
		snap     *Snapshot
		tier     string
		failures []string
	)

	for _, src := range r.sources {
		s, err := src.Fetch(ctx)
		if err != nil {
			log.Debug().Str("tier", src.Name()).Err(err).Msg("Tier unavailable")
			failures = append(failures, fmt.Sprintf("%s: %v", src.Name(), err))
			continue
		}
		if s == nil {
			failures = append(failures, src.Name()+": no reading")
			continue
		}
		if err := s.Validate(); err != nil {
			log.Warn().Str("tier", src.Name()).Err(err).Msg("Tier returned an inconsistent snapshot")
			failures = append(failures, fmt.Sprintf("%s: %v", src.Name(), err))
			continue
		}
		snap, tier = s, src.Name()
		break
	}

	if snap == nil {
		msg := "no sensor source configured"
		if len(failures) > 0 {
			msg = "no sensor source available: " + strings.Join(failures, "; ")
		}
		snap = unavailableSnapshot(msg)
		tier = "none"
	}

	r.mu.Lock()
	snap.Timestamp = r.stamp()
	if tier != r.lastTier {
		log.Info().Str("from", r.lastTier).Str("to", tier).Msg("Sensor tier changed")
		r.lastTier = tier
	}
	r.mu.Unlock()

	return snap
}

// Tier returns the name of the tier that served the last snapshot.
func (r *Resolver) Tier() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastTier
}

// stamp returns wall-clock milliseconds clamped so successive snapshots never
// go backwards. Must be called with r.mu held.
func (r *Resolver) stamp() uint64 {
	var ts uint64
	if ms := r.now().UnixMilli(); ms > 0 {
		ts = uint64(ms)
	}
	if ts < r.lastTS {
		ts = r.lastTS
	}
	r.lastTS = ts
	return ts
}
