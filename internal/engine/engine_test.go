package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ondo/internal/collector"
	"ondo/internal/config"
	"ondo/internal/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.Config{Level: "disabled"})
	goleak.VerifyTestMain(m)
}

type funcSource struct {
	name  string
	fetch func(ctx context.Context) (*collector.Snapshot, error)
	calls atomic.Int32
}

func (s *funcSource) Name() string { return s.name }

func (s *funcSource) Fetch(ctx context.Context) (*collector.Snapshot, error) {
	s.calls.Add(1)
	return s.fetch(ctx)
}

func cpuOnly(name string) *funcSource {
	return &funcSource{name: name, fetch: func(context.Context) (*collector.Snapshot, error) {
		return &collector.Snapshot{CPU: &collector.CPUReading{Name: "cpu-from-" + name}}, nil
	}}
}

func failing(name string) *funcSource {
	return &funcSource{name: name, fetch: func(context.Context) (*collector.Snapshot, error) {
		return nil, errors.New("offline")
	}}
}

func TestPoll_ServesFirstWorkingTier(t *testing.T) {
	daemon := failing("daemon")
	cli := cpuOnly("cli")
	e := NewWithSources(nil, daemon, cli)
	defer e.Shutdown()

	snap, err := e.Poll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.CPU)
	assert.Equal(t, "cpu-from-cli", snap.CPU.Name)
	assert.NotZero(t, snap.Timestamp)
	assert.Equal(t, "cli", e.Tier())
	assert.EqualValues(t, 1, daemon.calls.Load())
}

func TestPoll_AllTiersFailIsNotAnError(t *testing.T) {
	e := NewWithSources(nil, failing("daemon"), failing("wmi"))
	defer e.Shutdown()

	snap, err := e.Poll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.CPU)
	assert.Nil(t, snap.GPU)
	require.NotNil(t, snap.CPUError)
	assert.Equal(t, "no sensor source available: daemon: offline; wmi: offline", *snap.CPUError)
	assert.Equal(t, "none", e.Tier())
}

func TestPoll_PanicBecomesError(t *testing.T) {
	boom := &funcSource{name: "wmi", fetch: func(context.Context) (*collector.Snapshot, error) {
		panic("bad variant")
	}}
	e := NewWithSources(nil, boom)
	defer e.Shutdown()

	snap, err := e.Poll(context.Background())
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad variant")

	// The engine stays usable after a panicking poll.
	_, err = e.Poll(context.Background())
	assert.Error(t, err)
}

func TestPoll_ReturnsOnCancel(t *testing.T) {
	release := make(chan struct{})
	slow := &funcSource{name: "cli", fetch: func(ctx context.Context) (*collector.Snapshot, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, errors.New("timed out")
	}}
	e := NewWithSources(nil, slow)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	snap, err := e.Poll(ctx)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)

	close(release)
	e.Shutdown()
}

func TestPoll_AfterShutdown(t *testing.T) {
	e := NewWithSources(nil, cpuOnly("simulated"))
	e.Shutdown()
	e.Shutdown()

	_, err := e.Poll(context.Background())
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestShutdown_WaitsForInflightPoll(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	slow := &funcSource{name: "cli", fetch: func(context.Context) (*collector.Snapshot, error) {
		close(started)
		<-release
		finished.Store(true)
		return &collector.Snapshot{}, nil
	}}
	e := NewWithSources(nil, slow)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err := e.Poll(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	e.Shutdown()
	assert.True(t, finished.Load())
}

func TestNew_SimulatedTier(t *testing.T) {
	cfg := config.DefaultSensorConfig()
	cfg.Simulate = true

	e := New(cfg)
	defer e.Shutdown()

	snap, err := e.Poll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.CPU)
	require.NotNil(t, snap.GPU)
	assert.Equal(t, "simulated", e.Tier())
	assert.Nil(t, snap.CPUError)
}

func TestDefaultSources(t *testing.T) {
	cfg := config.DefaultSensorConfig()
	cfg.Simulate = true

	sources := DefaultSources(cfg, nil)
	require.Len(t, sources, 1)
	assert.Equal(t, "simulated", sources[0].Name())

	cfg.Simulate = false
	daemon := collector.NewDaemon(collector.DaemonOptions{})
	defer daemon.Shutdown()

	var names []string
	for _, s := range DefaultSources(cfg, daemon) {
		names = append(names, s.Name())
	}
	if useHelper(cfg) {
		assert.Equal(t, []string{"daemon", "cli", "wmi"}, names)
	} else {
		assert.Equal(t, []string{"simulated"}, names)
	}
}
