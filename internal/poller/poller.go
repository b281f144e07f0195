// Package poller implements the self-rescheduling periodic task shared by the
// connection manager and the message monitor.
//
// A Poller runs fn immediately on Start and then once per interval until
// stopped. At most one invocation of fn is in flight at any time, whether it
// was triggered by the loop or by TryRun. Stop is cooperative: an in-flight
// invocation finishes, but no further one is scheduled. Cancelling the
// context passed to Start additionally aborts whatever fn is blocked on.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Poller owns one periodic loop and its cancellation token.
type Poller struct {
	fn func(ctx context.Context)

	mu       sync.Mutex
	interval time.Duration
	running  bool
	stopCh   chan struct{}
	done     chan struct{}

	busy atomic.Bool
}

// New creates a stopped poller.
func New(interval time.Duration, fn func(ctx context.Context)) *Poller {
	done := make(chan struct{})
	close(done)
	return &Poller{fn: fn, interval: interval, done: done}
}

// Start launches the loop. It returns false, leaving the existing loop
// untouched, when the poller is already running.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(ctx, p.stopCh, p.done)
	return true
}

// Stop prevents the next scheduled run. Calling Stop on a stopped poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.stopCh)
}

// Running reports whether the loop is scheduled to keep running.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Done is closed when the current loop goroutine has exited.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// SetInterval changes the delay used for the next reschedule.
func (p *Poller) SetInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
}

// Interval returns the current delay between runs.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// TryRun invokes fn unless an invocation is already in flight, in which case
// it returns false without waiting.
func (p *Poller) TryRun(ctx context.Context) bool {
	if !p.busy.CompareAndSwap(false, true) {
		return false
	}
	defer p.busy.Store(false)
	p.fn(ctx)
	return true
}

// Busy reports whether fn is currently executing.
func (p *Poller) Busy() bool { return p.busy.Load() }

func (p *Poller) loop(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer p.markExited(stop)

	for {
		p.TryRun(ctx)

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		timer := time.NewTimer(p.Interval())
		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// markExited clears the running flag when the loop ends on its own (context
// cancellation) and no newer loop has replaced it.
func (p *Poller) markExited(stop <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running && p.stopCh == stop {
		p.running = false
	}
}
