package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ondo/internal/collector"
	"ondo/internal/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.Config{Level: "disabled"})
	goleak.VerifyTestMain(m)
}

// mockPoller returns a fresh snapshot per call, or err when set.
type mockPoller struct {
	calls atomic.Int32
	mu    sync.Mutex
	err   error
	block bool
}

func (p *mockPoller) Poll(ctx context.Context) (*collector.Snapshot, error) {
	n := p.calls.Add(1)
	p.mu.Lock()
	err, block := p.err, p.block
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &collector.Snapshot{Timestamp: uint64(n)}, nil
}

func (p *mockPoller) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// mockSender records delivered snapshots.
type mockSender struct {
	mu    sync.Mutex
	snaps []*collector.Snapshot
	err   error
}

func (s *mockSender) Send(_ context.Context, snap *collector.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *mockSender) Close() error { return nil }

func (s *mockSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

func waitForSends(t *testing.T, s *mockSender, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.count() >= n }, 2*time.Second, 5*time.Millisecond,
		"expected %d sends, got %d", n, s.count())
}

func TestScheduler_InitialPollThenEveryTick(t *testing.T) {
	mock := clock.NewMock()
	p := &mockPoller{}
	sink := &mockSender{}

	s := New(p, sink, time.Second, time.Second, mock)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	waitForSends(t, sink, 1)

	mock.Add(time.Second)
	waitForSends(t, sink, 2)

	mock.Add(time.Second)
	waitForSends(t, sink, 3)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i, snap := range sink.snaps {
		assert.Equal(t, uint64(i+1), snap.Timestamp)
	}
}

func TestScheduler_NoPollBeforeInterval(t *testing.T) {
	mock := clock.NewMock()
	p := &mockPoller{}
	sink := &mockSender{}

	s := New(p, sink, 10*time.Second, time.Second, mock)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	waitForSends(t, sink, 1)

	mock.Add(9 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, sink.count())

	mock.Add(time.Second)
	waitForSends(t, sink, 2)
}

func TestScheduler_PollErrorSkipsSendAndContinues(t *testing.T) {
	mock := clock.NewMock()
	p := &mockPoller{}
	p.setErr(errors.New("sensor poll failed: boom"))
	sink := &mockSender{}

	s := New(p, sink, time.Second, time.Second, mock)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return p.calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, sink.count())

	p.setErr(nil)
	mock.Add(time.Second)
	waitForSends(t, sink, 1)
}

func TestScheduler_SendErrorContinues(t *testing.T) {
	mock := clock.NewMock()
	p := &mockPoller{}
	sink := &mockSender{err: errors.New("broker down")}

	s := New(p, sink, time.Second, time.Second, mock)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return p.calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	mock.Add(time.Second)
	waitForSends(t, sink, 1)
	assert.GreaterOrEqual(t, p.calls.Load(), int32(2))
}

func TestScheduler_ReconfigureBeforeStart(t *testing.T) {
	mock := clock.NewMock()
	sink := &mockSender{}

	s := New(&mockPoller{}, sink, time.Second, time.Second, mock)
	s.Reconfigure(5 * time.Second)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	waitForSends(t, sink, 1)

	mock.Add(time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, sink.count())

	mock.Add(4 * time.Second)
	waitForSends(t, sink, 2)
}

func TestScheduler_ReconfigureWhileRunning(t *testing.T) {
	mock := clock.NewMock()
	sink := &mockSender{}

	s := New(&mockPoller{}, sink, time.Second, time.Second, mock)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	waitForSends(t, sink, 1)

	s.Reconfigure(3 * time.Second)
	assert.Equal(t, 3*time.Second, s.currentInterval())

	require.Eventually(t, func() bool {
		mock.Add(3 * time.Second)
		return sink.count() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_ReconfigureIgnoresNonPositive(t *testing.T) {
	s := New(&mockPoller{}, &mockSender{}, time.Second, time.Second, clock.NewMock())
	s.Reconfigure(0)
	s.Reconfigure(-time.Second)
	assert.Equal(t, time.Second, s.currentInterval())
}

func TestScheduler_StopCancelsBlockedPoll(t *testing.T) {
	p := &mockPoller{block: true}
	s := New(p, &mockSender{}, time.Second, time.Hour, clock.NewMock())
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a poll was blocked")
	}
	assert.False(t, s.IsRunning())
}

func TestScheduler_StartStopIdempotent(t *testing.T) {
	s := New(&mockPoller{}, &mockSender{}, time.Second, time.Second, clock.NewMock())

	assert.False(t, s.IsRunning())
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestScheduler_PollTimeout(t *testing.T) {
	p := &mockPoller{block: true}
	sink := &mockSender{}
	s := New(p, sink, time.Hour, 20*time.Millisecond, clock.NewMock())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// The blocked poll is released by its own deadline, not by Stop.
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, sink.count())
}
