// Package sched provides the timer abstraction used by the tracking core.
//
// All registry, pool and signal state is owned by one goroutine. Transport
// goroutines and timers never touch that state directly; they Post closures
// to a Loop which runs them one at a time.
package sched

import (
	"context"
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop cancels the timer. It reports false if the timer already fired or
	// was already stopped.
	Stop() bool
}

// Scheduler creates timers whose callbacks run on the owning goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Now() time.Time
}

// Stop cancels t if it is non-nil.
func Stop(t Timer) {
	if t != nil {
		t.Stop()
	}
}

// Loop is a single-goroutine executor. Run drains posted closures in order.
type Loop struct {
	events chan func()
	done   chan struct{}
	once   sync.Once
}

func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Loop{
		events: make(chan func(), buffer),
		done:   make(chan struct{}),
	}
}

// Post queues fn for execution on the loop goroutine. It is safe to call from
// any goroutine and returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case <-l.done:
		return false
	case l.events <- fn:
		return true
	}
}

// Run executes posted closures until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.events:
			fn()
		}
	}
}

func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc arms a wall-clock timer whose callback is posted to the loop.
// Stop must be called from the loop goroutine; a callback that was already
// queued when Stop ran is discarded.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.done {
				return
			}
			t.done = true
			fn()
		})
	})
	return t
}

type loopTimer struct {
	timer *time.Timer
	done  bool
}

func (t *loopTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	t.timer.Stop()
	return true
}
