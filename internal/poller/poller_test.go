package poller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_RunsImmediatelyAndRepeats(t *testing.T) {
	var calls atomic.Int32
	p := New(5*time.Millisecond, func(context.Context) { calls.Add(1) })

	require.True(t, p.Start(context.Background()))
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	p.Stop()
	<-p.Done()
	assert.False(t, p.Running())
}

func TestPoller_StartTwiceSingleLoop(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	p := New(time.Millisecond, func(context.Context) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
	})

	ctx := context.Background()
	require.True(t, p.Start(ctx))
	assert.False(t, p.Start(ctx), "second start must be a no-op")

	time.Sleep(30 * time.Millisecond)
	p.Stop()
	<-p.Done()
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestPoller_StopWhileIdleIsNoop(t *testing.T) {
	p := New(time.Second, func(context.Context) {})
	assert.NotPanics(t, func() {
		p.Stop()
		p.Stop()
	})
	select {
	case <-p.Done():
	default:
		t.Fatal("done channel of a never started poller must be closed")
	}
}

func TestPoller_StopIsCooperative(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var finished, calls atomic.Int32
	p := New(time.Millisecond, func(context.Context) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			finished.Add(1)
		}
	})

	require.True(t, p.Start(context.Background()))
	<-entered
	p.Stop()
	close(release)
	<-p.Done()

	assert.Equal(t, int32(1), finished.Load(), "in-flight run completes")
	assert.Equal(t, int32(1), calls.Load(), "no run after stop")
}

func TestPoller_ContextCancelEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(time.Hour, func(context.Context) {})
	require.True(t, p.Start(ctx))
	cancel()
	<-p.Done()
	assert.False(t, p.Running())
	assert.True(t, p.Start(context.Background()), "restart after cancellation")
	p.Stop()
}

func TestPoller_TryRunGuard(t *testing.T) {
	block := make(chan struct{})
	entered := make(chan struct{}, 1)
	p := New(time.Hour, func(context.Context) {
		entered <- struct{}{}
		<-block
	})

	go p.TryRun(context.Background())
	<-entered
	assert.True(t, p.Busy())
	assert.False(t, p.TryRun(context.Background()))
	close(block)
	assert.Eventually(t, func() bool { return !p.Busy() }, time.Second, time.Millisecond)
}

func TestPoller_SetInterval(t *testing.T) {
	p := New(time.Second, func(context.Context) {})
	p.SetInterval(10 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, p.Interval())
}
