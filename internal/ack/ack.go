package ack

import (
	"errors"
	"time"

	"bn-strike-bot/internal/retry"
	"bn-strike-bot/internal/sched"
)

var ErrUnknownID = errors.New("unknown correlation id")

type Op int

const (
	Subscribe Op = iota
	Unsubscribe
)

func (o Op) String() string {
	if o == Unsubscribe {
		return "unsubscribe"
	}
	return "subscribe"
}

// IDs hands out strictly increasing millisecond-based correlation ids.
type IDs struct {
	last int64
}

func (g *IDs) Next(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Policy sizes the ack grace period. The first window is exactly the pacing
// interval times the number of tracked pairs. Retries start from at least
// minWindow and double up to MaxBackoff.
type Policy struct {
	Interval    time.Duration
	MaxBackoff  time.Duration
	MaxAttempts int
}

const minWindow = time.Second

func (p Policy) Delay(attempt, pairs int) time.Duration {
	if pairs < 1 {
		pairs = 1
	}
	base := p.Interval * time.Duration(pairs)
	if attempt <= 0 && base > 0 {
		return base
	}
	if base < minWindow {
		base = minWindow
	}
	return retry.Backoff{Base: base, Max: p.MaxBackoff}.Delay(attempt)
}

// Exhausted reports whether a control message sent attempt+1 times should
// stop being retried.
func (p Policy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt+1 >= p.MaxAttempts
}

// Entry is one in-flight control message.
type Entry struct {
	ID      int64
	Base    string
	Op      Op
	ConnID  string
	Attempt int

	timer sched.Timer
}

// Tracker correlates outbound control messages with their acks. At most one
// entry exists per base asset. It is owned by a single goroutine.
type Tracker struct {
	clock   sched.Scheduler
	ids     IDs
	entries map[int64]*Entry
	byBase  map[string]int64
}

func NewTracker(clock sched.Scheduler) *Tracker {
	return &Tracker{
		clock:   clock,
		entries: make(map[int64]*Entry),
		byBase:  make(map[string]int64),
	}
}

// Track records a new control message for base, replacing any previous
// entry, and arms its timeout. onTimeout runs after the entry is discarded.
func (t *Tracker) Track(base string, op Op, connID string, attempt int, window time.Duration, onTimeout func(Entry)) Entry {
	t.Drop(base)
	e := &Entry{
		ID:      t.ids.Next(t.clock.Now()),
		Base:    base,
		Op:      op,
		ConnID:  connID,
		Attempt: attempt,
	}
	id := e.ID
	e.timer = t.clock.AfterFunc(window, func() {
		cur, ok := t.entries[id]
		if !ok || cur != e {
			return
		}
		t.remove(e)
		if onTimeout != nil {
			onTimeout(*e)
		}
	})
	t.entries[id] = e
	t.byBase[base] = id
	return *e
}

// Resolve clears the entry for an acknowledged id.
func (t *Tracker) Resolve(id int64) (Entry, error) {
	e, ok := t.entries[id]
	if !ok {
		return Entry{}, ErrUnknownID
	}
	sched.Stop(e.timer)
	t.remove(e)
	return *e, nil
}

// Drop cancels the entry for base, if any.
func (t *Tracker) Drop(base string) bool {
	id, ok := t.byBase[base]
	if !ok {
		return false
	}
	e := t.entries[id]
	sched.Stop(e.timer)
	t.remove(e)
	return true
}

func (t *Tracker) Pending(base string) (Entry, bool) {
	id, ok := t.byBase[base]
	if !ok {
		return Entry{}, false
	}
	return *t.entries[id], true
}

func (t *Tracker) Len() int {
	return len(t.entries)
}

func (t *Tracker) Clear() {
	for _, e := range t.entries {
		sched.Stop(e.timer)
	}
	t.entries = make(map[int64]*Entry)
	t.byBase = make(map[string]int64)
}

func (t *Tracker) remove(e *Entry) {
	delete(t.entries, e.ID)
	if t.byBase[e.Base] == e.ID {
		delete(t.byBase, e.Base)
	}
}
