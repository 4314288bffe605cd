package sched

import "time"

// Manual is a Scheduler driven by Advance. Callbacks run synchronously on the
// caller's goroutine, which makes timer-heavy code deterministic under test.
type Manual struct {
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	at    time.Time
	seq   int
	fn    func()
	owner *Manual
	done  bool
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	t := &manualTimer{at: m.now.Add(d), seq: m.seq, fn: fn, owner: m}
	m.seq++
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d, firing due timers in deadline order.
// Timers armed by callbacks fire in the same call if they fall due.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		next := m.next(target)
		if next == nil {
			break
		}
		m.now = next.at
		next.done = true
		m.remove(next)
		next.fn()
	}
	m.now = target
}

// Pending reports the number of armed timers.
func (m *Manual) Pending() int {
	return len(m.timers)
}

func (m *Manual) next(target time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.at.After(target) {
			continue
		}
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (m *Manual) remove(t *manualTimer) {
	for i, cur := range m.timers {
		if cur == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

func (t *manualTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	t.owner.remove(t)
	return true
}
